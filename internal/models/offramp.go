package models

import (
	"time"
)

// Off-ramp order statuses as reported by the payment-rail provider.
// Transitions are monotonic: pending is never re-applied over a terminal status.
const (
	OrderStatusPending  = "pending"
	OrderStatusSettled  = "settled"
	OrderStatusExpired  = "expired"
	OrderStatusRefunded = "refunded"
)

// OffRampTransaction mirrors a provider payment order. The primary key is the
// provider's order id, so duplicate webhook deliveries collapse into one row.
type OffRampTransaction struct {
	ID         string  `gorm:"primaryKey;size:64"`
	MerchantID string  `gorm:"size:64;index;not null"` // merchant wallet address
	Amount     float64 `gorm:"not null"`
	Rate       float64 `gorm:"not null"`
	Currency   string  `gorm:"size:8;not null"`
	Status     string  `gorm:"size:16;default:'pending'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsTerminalStatus reports whether a provider status ends the order lifecycle.
func IsTerminalStatus(status string) bool {
	switch status {
	case OrderStatusSettled, OrderStatusExpired, OrderStatusRefunded:
		return true
	}
	return false
}
