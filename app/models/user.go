package models

import "gorm.io/gorm"

// Role is static reference data: admin or customer.
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;uniqueIndex;not null" json:"name"`
}

// User is a registered shop account.
type User struct {
	gorm.Model
	Username     string `gorm:"size:50;uniqueIndex;not null"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	RoleID       uint   `gorm:"not null;index"`
	Role         Role
	IsVerified   bool   `gorm:"not null;default:false"`
	AddressLine1 string `gorm:"size:255"`
	AddressLine2 string `gorm:"size:255"`
	City         string `gorm:"size:100"`
	State        string `gorm:"size:100"`
	PostalCode   string `gorm:"size:20"`
	Country      string `gorm:"size:100"`
}

// RevokedToken blocks a token id until its natural expiry.
type RevokedToken struct {
	ID        uint   `gorm:"primaryKey"`
	JTI       string `gorm:"column:jti;size:64;uniqueIndex;not null"`
	UserID    uint   `gorm:"not null;index"`
	ExpiresAt int64  `gorm:"not null;index"`
	RevokedAt int64  `gorm:"autoCreateTime"`
}
