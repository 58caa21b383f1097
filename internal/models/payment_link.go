package models

import (
	"time"
)

type PaymentLink struct {
	ID          string  `gorm:"primaryKey;size:36"` // uuid
	MerchantID  string  `gorm:"size:64;index;not null"`
	Amount      float64 `gorm:"not null"`
	Currency    string  `gorm:"size:8;not null"`
	Description string  `gorm:"size:512"`
	Signature   string  `gorm:"size:64;not null"` // hex HMAC-SHA256 over the query string
	Status      string  `gorm:"size:16;default:'active'"`
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Disbursement is an admin-recorded payout of referral earnings to an
// influencer. Created manually; commissions themselves are never persisted.
type Disbursement struct {
	ID             string  `gorm:"primaryKey;size:36"` // uuid
	InfluencerCode string  `gorm:"size:16;index;not null"`
	Amount         float64 `gorm:"not null"`
	Currency       string  `gorm:"size:8;not null"`
	Note           string  `gorm:"size:512"`
	CreatedAt      time.Time
}
