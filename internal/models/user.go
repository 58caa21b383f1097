package models

import (
	"time"
)

type User struct {
	ID          uint   `gorm:"primaryKey"`
	Wallet      string `gorm:"size:64;uniqueIndex;not null"`
	Email       string `gorm:"size:255"`
	PrivyUserID string `gorm:"size:64;uniqueIndex"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
