package paymentlink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nedapay-api/internal/models"
)

var (
	ErrNotFound = errors.New("payment link not found")
	ErrTampered = errors.New("payment link signature mismatch")
	ErrExpired  = errors.New("payment link expired")
)

type Service struct {
	DB      *gorm.DB
	Secret  string
	BaseURL string
}

func NewService(db *gorm.DB, secret, baseURL string) *Service {
	return &Service{DB: db, Secret: secret, BaseURL: baseURL}
}

// CanonicalQuery builds the signed query string for a link. url.Values.Encode
// sorts keys, so the same link always signs the same bytes.
func CanonicalQuery(merchant string, amount float64, currency, description string) string {
	v := url.Values{}
	v.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	v.Set("currency", currency)
	v.Set("to", merchant)
	if description != "" {
		v.Set("description", description)
	}
	return v.Encode()
}

// Sign computes the hex HMAC-SHA256 of a canonical query string.
func (s *Service) Sign(query string) string {
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// Create persists a new signed payment link and returns it with its full URL.
func (s *Service) Create(merchant string, amount float64, currency, description string, ttl time.Duration) (*models.PaymentLink, string, error) {
	query := CanonicalQuery(merchant, amount, currency, description)

	link := &models.PaymentLink{
		ID:          uuid.New().String(),
		MerchantID:  merchant,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Signature:   s.Sign(query),
		Status:      "active",
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		link.ExpiresAt = &expires
	}

	if err := s.DB.Create(link).Error; err != nil {
		return nil, "", fmt.Errorf("failed to save payment link: %w", err)
	}

	return link, s.URL(link), nil
}

// URL renders the shareable pay URL: {base}/pay/{id}?{query}&sig={hex}.
func (s *Service) URL(link *models.PaymentLink) string {
	query := CanonicalQuery(link.MerchantID, link.Amount, link.Currency, link.Description)
	return fmt.Sprintf("%s/pay/%s?%s&sig=%s", s.BaseURL, link.ID, query, link.Signature)
}

// Resolve loads a link and re-verifies its stored signature against the
// stored fields, so a row edited out-of-band no longer resolves.
func (s *Service) Resolve(id string) (*models.PaymentLink, error) {
	var link models.PaymentLink
	if err := s.DB.Where("id = ?", id).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load payment link: %w", err)
	}

	expected := s.Sign(CanonicalQuery(link.MerchantID, link.Amount, link.Currency, link.Description))
	if !hmac.Equal([]byte(expected), []byte(link.Signature)) {
		return nil, ErrTampered
	}

	if link.Status == "expired" || (link.ExpiresAt != nil && time.Now().After(*link.ExpiresAt)) {
		return nil, ErrExpired
	}

	return &link, nil
}
