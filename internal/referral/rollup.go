package referral

import (
	"fmt"
	"sort"

	"nedapay-api/internal/models"
)

// CurrencyVolume is gross fiat volume bucketed by currency and order status.
type CurrencyVolume struct {
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
	Count    int     `json:"count"`
	Volume   float64 `json:"volume"`
}

type InfluencerRollup struct {
	Code       string           `json:"code"`
	Referrals  int              `json:"referrals"`
	Volume     []CurrencyVolume `json:"volume"`
	Commission []Earning        `json:"commission"`
}

type PlatformAnalytics struct {
	Influencers []InfluencerRollup `json:"influencers"`
	Volume      []CurrencyVolume   `json:"volume"`
	Commission  []Earning          `json:"commission"`
}

// PlatformRollup aggregates referred off-ramp activity across all influencer
// codes. Transactions from wallets with no referral mapping are excluded:
// organic merchants do not appear in influencer reporting.
func (s *Service) PlatformRollup() (*PlatformAnalytics, error) {
	var referrals []models.Referral
	if err := s.DB.Preload("User").Order("created_at ASC").Find(&referrals).Error; err != nil {
		return nil, fmt.Errorf("failed to load referrals: %w", err)
	}

	walletToCode := make(map[string]string, len(referrals))
	referralsByCode := make(map[string][]models.Referral)
	for _, r := range referrals {
		walletToCode[r.User.Wallet] = r.InfluencerCode
		referralsByCode[r.InfluencerCode] = append(referralsByCode[r.InfluencerCode], r)
	}

	var txs []models.OffRampTransaction
	if err := s.DB.Order("created_at ASC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	txsByCode := make(map[string][]models.OffRampTransaction)
	for _, tx := range txs {
		code, ok := walletToCode[tx.MerchantID]
		if !ok {
			continue
		}
		txsByCode[code] = append(txsByCode[code], tx)
	}

	codes := make([]string, 0, len(referralsByCode))
	for code := range referralsByCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	result := &PlatformAnalytics{Influencers: make([]InfluencerRollup, 0, len(codes))}
	platformVolume := make(map[volumeKey]*CurrencyVolume)
	platformCommission := make(map[string]float64)

	for _, code := range codes {
		codeTxs := txsByCode[code]

		rollup := InfluencerRollup{
			Code:      code,
			Referrals: len(referralsByCode[code]),
			Volume:    bucketVolume(codeTxs),
		}

		_, byCurrency, _ := computeEarnings(referralsByCode[code], codeTxs)
		for _, agg := range byCurrency {
			rollup.Commission = append(rollup.Commission, Earning{Amount: agg.Amount, Currency: agg.Currency})
			platformCommission[agg.Currency] = Round8(platformCommission[agg.Currency] + agg.Amount)
		}

		for _, v := range rollup.Volume {
			key := volumeKey{v.Currency, v.Status}
			agg, ok := platformVolume[key]
			if !ok {
				agg = &CurrencyVolume{Currency: v.Currency, Status: v.Status}
				platformVolume[key] = agg
			}
			agg.Count += v.Count
			agg.Volume += v.Volume
		}

		result.Influencers = append(result.Influencers, rollup)
	}

	result.Volume = sortVolumes(platformVolume)

	currencies := make([]string, 0, len(platformCommission))
	for currency := range platformCommission {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	for _, currency := range currencies {
		result.Commission = append(result.Commission, Earning{Amount: platformCommission[currency], Currency: currency})
	}

	return result, nil
}

type volumeKey struct {
	currency string
	status   string
}

func bucketVolume(txs []models.OffRampTransaction) []CurrencyVolume {
	buckets := make(map[volumeKey]*CurrencyVolume)
	for _, tx := range txs {
		key := volumeKey{tx.Currency, tx.Status}
		agg, ok := buckets[key]
		if !ok {
			agg = &CurrencyVolume{Currency: tx.Currency, Status: tx.Status}
			buckets[key] = agg
		}
		agg.Count++
		agg.Volume += tx.Amount * tx.Rate
	}
	return sortVolumes(buckets)
}

func sortVolumes(buckets map[volumeKey]*CurrencyVolume) []CurrencyVolume {
	out := make([]CurrencyVolume, 0, len(buckets))
	for _, v := range buckets {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Currency != out[j].Currency {
			return out[i].Currency < out[j].Currency
		}
		return out[i].Status < out[j].Status
	})
	return out
}
