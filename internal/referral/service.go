package referral

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"nedapay-api/internal/models"
)

// CommissionRate is the flat share of gross fiat volume paid on a referred
// merchant's first settled off-ramp.
const CommissionRate = 0.1

var ErrInfluencerNotFound = errors.New("influencer not found")

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Round8 rounds to 8 decimal places, the precision commissions are reported at.
func Round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

type InfluencerInfo struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	IsActive    bool   `json:"isActive"`
}

// SettledTx is the first settled transaction of a referred merchant, with
// Amount expressed as gross fiat volume (token amount × rate).
type SettledTx struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

type Earning struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type ReferredUser struct {
	Wallet         string     `json:"wallet"`
	ReferredAt     time.Time  `json:"referredAt"`
	FirstSettledTx *SettledTx `json:"firstSettledTx"`
	Earning        *Earning   `json:"earning"`
}

type CurrencyEarning struct {
	Currency  string  `json:"currency"`
	Amount    float64 `json:"amount"`
	Referrals int     `json:"referrals"`
}

type Totals struct {
	Referrals    int       `json:"referrals"`
	WithEarnings int       `json:"withEarnings"`
	Commission   []Earning `json:"commission"`
}

type InfluencerAnalytics struct {
	Influencer         InfluencerInfo    `json:"influencer"`
	ReferralsCount     int               `json:"referralsCount"`
	ReferredUsers      []ReferredUser    `json:"referredUsers"`
	EarningsByCurrency []CurrencyEarning `json:"earningsByCurrency"`
	Totals             Totals            `json:"totals"`
}

// AnalyticsForCode computes the influencer's referral earnings as a pure
// read-time projection. Nothing here is persisted.
func (s *Service) AnalyticsForCode(code string) (*InfluencerAnalytics, error) {
	var profile models.InfluencerProfile
	if err := s.DB.Where("custom_code = ?", code).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInfluencerNotFound
		}
		return nil, fmt.Errorf("failed to load influencer: %w", err)
	}

	var referrals []models.Referral
	if err := s.DB.Preload("User").Where("influencer_code = ?", code).
		Order("created_at ASC").Find(&referrals).Error; err != nil {
		return nil, fmt.Errorf("failed to load referrals: %w", err)
	}

	wallets := make([]string, 0, len(referrals))
	for _, r := range referrals {
		wallets = append(wallets, r.User.Wallet)
	}

	var txs []models.OffRampTransaction
	if len(wallets) > 0 {
		if err := s.DB.Where("merchant_id IN ?", wallets).
			Order("created_at ASC").Find(&txs).Error; err != nil {
			return nil, fmt.Errorf("failed to load transactions: %w", err)
		}
	}

	referred, byCurrency, totals := computeEarnings(referrals, txs)

	return &InfluencerAnalytics{
		Influencer: InfluencerInfo{
			Code:        profile.CustomCode,
			DisplayName: profile.DisplayName,
			IsActive:    profile.IsActive,
		},
		ReferralsCount:     len(referrals),
		ReferredUsers:      referred,
		EarningsByCurrency: byCurrency,
		Totals:             totals,
	}, nil
}

// computeEarnings is the in-memory reduce over referrals and their off-ramp
// history: per referral, the first settled transaction and its commission.
// Referrals with no settled transaction keep a nil earning and still count.
func computeEarnings(referrals []models.Referral, txs []models.OffRampTransaction) ([]ReferredUser, []CurrencyEarning, Totals) {
	txsByWallet := make(map[string][]models.OffRampTransaction)
	for _, tx := range txs {
		txsByWallet[tx.MerchantID] = append(txsByWallet[tx.MerchantID], tx)
	}

	referred := make([]ReferredUser, 0, len(referrals))
	earningTotals := make(map[string]*CurrencyEarning)
	totals := Totals{Referrals: len(referrals)}

	for _, r := range referrals {
		ru := ReferredUser{
			Wallet:     r.User.Wallet,
			ReferredAt: r.CreatedAt,
		}

		if first := FirstSettled(txsByWallet[r.User.Wallet]); first != nil {
			volume := first.Amount * first.Rate
			commission := Round8(CommissionRate * volume)

			ru.FirstSettledTx = &SettledTx{
				ID:        first.ID,
				Amount:    volume,
				Currency:  first.Currency,
				CreatedAt: first.CreatedAt,
			}
			ru.Earning = &Earning{Amount: commission, Currency: first.Currency}

			agg, ok := earningTotals[first.Currency]
			if !ok {
				agg = &CurrencyEarning{Currency: first.Currency}
				earningTotals[first.Currency] = agg
			}
			agg.Amount = Round8(agg.Amount + commission)
			agg.Referrals++
			totals.WithEarnings++
		}

		referred = append(referred, ru)
	}

	byCurrency := make([]CurrencyEarning, 0, len(earningTotals))
	for _, agg := range earningTotals {
		byCurrency = append(byCurrency, *agg)
	}
	sort.Slice(byCurrency, func(i, j int) bool { return byCurrency[i].Currency < byCurrency[j].Currency })

	for _, agg := range byCurrency {
		totals.Commission = append(totals.Commission, Earning{Amount: agg.Amount, Currency: agg.Currency})
	}

	return referred, byCurrency, totals
}

// FirstSettled picks the settled transaction with the earliest creation time.
func FirstSettled(txs []models.OffRampTransaction) *models.OffRampTransaction {
	var first *models.OffRampTransaction
	for i := range txs {
		if txs[i].Status != models.OrderStatusSettled {
			continue
		}
		if first == nil || txs[i].CreatedAt.Before(first.CreatedAt) {
			first = &txs[i]
		}
	}
	return first
}
