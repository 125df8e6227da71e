package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

const (
	ActionPurchase       = "PURCHASE"
	ActionRestock        = "RESTOCK"
	ActionCreateSweet    = "CREATE_SWEET"
	ActionUpdateSweet    = "UPDATE_SWEET"
	ActionDeleteSweet    = "DELETE_SWEET"
	ActionCreateCategory = "CREATE_CATEGORY"
	ActionViewUsers      = "VIEW_USERS"
)

// AuditLog rows are append-only.
type AuditLog struct {
	ID          uint     `gorm:"primaryKey"`
	UserID      uint     `gorm:"not null;index"`
	Action      string   `gorm:"size:50;not null;index"`
	TargetTable string   `gorm:"size:50;not null"`
	TargetID    *uint    `gorm:"index"`
	Metadata    Metadata `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
}

// Metadata is stored as a JSON document in a text column.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.New("models: unsupported metadata column type")
	}
	out := Metadata{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
