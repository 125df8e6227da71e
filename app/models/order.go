package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is immutable once written.
type Purchase struct {
	ID                uint            `gorm:"primaryKey"`
	UserID            uint            `gorm:"not null;index"`
	User              User
	SweetID           uint            `gorm:"not null;index"`
	Sweet             Sweet
	QuantityPurchased int             `gorm:"not null;check:quantity_purchased > 0"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PurchasedAt       time.Time       `gorm:"not null;index"`
}

// Restock is immutable once written.
type Restock struct {
	ID            uint      `gorm:"primaryKey"`
	AdminID       uint      `gorm:"not null;index"`
	Admin         User      `gorm:"foreignKey:AdminID"`
	SweetID       uint      `gorm:"not null;index"`
	Sweet         Sweet
	QuantityAdded int       `gorm:"not null;check:quantity_added > 0"`
	RestockedAt   time.Time `gorm:"not null"`
}

type Review struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_reviews_user_sweet"`
	User      User
	SweetID   uint   `gorm:"not null;uniqueIndex:idx_reviews_user_sweet;index"`
	Rating    int    `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string `gorm:"size:1000"`
	CreatedAt time.Time
}
