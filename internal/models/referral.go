package models

import (
	"time"
)

// Referral links a referred user to the influencer code that invited them.
// The unique index on UserID enforces first-referrer-wins: a user can be
// claimed by at most one code, ever.
type Referral struct {
	ID             uint   `gorm:"primaryKey"`
	InfluencerCode string `gorm:"size:16;index;not null"`
	UserID         uint   `gorm:"uniqueIndex;not null"`
	User           User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt      time.Time
}

type InfluencerProfile struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"uniqueIndex;not null"`
	User        User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CustomCode  string `gorm:"size:16;uniqueIndex;not null"`
	DisplayName string `gorm:"size:255"`
	IsActive    bool   `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
