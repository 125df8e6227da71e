package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lifecycle is the state tag of a catalog entry. Deleted sweets stay in the
// table so purchase and review history keep their references.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleDeleted Lifecycle = "deleted"
)

type Category struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;uniqueIndex;not null"`
	CreatedAt time.Time
}

type Sweet struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:100;not null;index"`
	CategoryID  uint            `gorm:"not null;index"`
	Category    Category
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ImageURL    string          `gorm:"size:255"`
	Description string          `gorm:"type:text"`
	Lifecycle   Lifecycle       `gorm:"size:16;not null;default:active;index"`
	Inventory   *SweetInventory `gorm:"foreignKey:SweetID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s Sweet) IsActive() bool { return s.Lifecycle == LifecycleActive }

// SweetInventory holds the stock counter; exactly one row per sweet.
type SweetInventory struct {
	ID        uint `gorm:"primaryKey"`
	SweetID   uint `gorm:"uniqueIndex;not null"`
	Quantity  int  `gorm:"not null;default:0;check:quantity >= 0"`
	UpdatedAt time.Time
}
