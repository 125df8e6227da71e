// Package resources defines the JSON shape of every model the API returns.
// Money is rendered as a fixed-point string with two decimals.
package resources

import (
	"time"

	"github.com/samber/lo"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/services"
	"github.com/shashiranjanraj/mithai/pkg/resource"
)

type User struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsVerified   bool      `json:"is_verified"`
	AddressLine1 string    `json:"address_line1,omitempty"`
	AddressLine2 string    `json:"address_line2,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	PostalCode   string    `json:"postal_code,omitempty"`
	Country      string    `json:"country,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewUser(u models.User) User {
	return User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role.Name,
		IsVerified:   u.IsVerified,
		AddressLine1: u.AddressLine1,
		AddressLine2: u.AddressLine2,
		City:         u.City,
		State:        u.State,
		PostalCode:   u.PostalCode,
		Country:      u.Country,
		CreatedAt:    u.CreatedAt,
	}
}

// AdminUser is the row shape of the admin user listing.
type AdminUser struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewAdminUser(u models.User) AdminUser {
	return AdminUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role.Name,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

type UserList struct {
	Users      []AdminUser `json:"users"`
	TotalCount int         `json:"total_count"`
}

func NewUserList(users []models.User) UserList {
	return UserList{Users: resource.Collection(users, NewAdminUser), TotalCount: len(users)}
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func NewToken(t services.TokenResult) Token {
	return Token{AccessToken: t.AccessToken, TokenType: t.TokenType, ExpiresIn: t.ExpiresIn}
}

type Category struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func NewCategory(c models.Category) Category {
	return Category{ID: c.ID, Name: c.Name}
}

type Sweet struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Category    Category `json:"category"`
	ImageURL    string   `json:"image_url,omitempty"`
	Description string   `json:"description,omitempty"`
	Quantity    int      `json:"quantity"`
	InStock     bool     `json:"in_stock"`
}

func NewSweet(s models.Sweet) Sweet {
	qty := 0
	if s.Inventory != nil {
		qty = s.Inventory.Quantity
	}
	return Sweet{
		ID:          s.ID,
		Name:        s.Name,
		Price:       s.Price.StringFixed(2),
		Category:    NewCategory(s.Category),
		ImageURL:    s.ImageURL,
		Description: s.Description,
		Quantity:    qty,
		InStock:     qty > 0,
	}
}

type SweetDetail struct {
	Sweet
	AvgRating   float64  `json:"avg_rating"`
	ReviewCount int64    `json:"review_count"`
	Reviews     []Review `json:"reviews"`
}

func NewSweetDetail(d services.SweetDetail) SweetDetail {
	base := NewSweet(d.Sweet)
	base.Quantity = d.Quantity
	base.InStock = d.Quantity > 0
	return SweetDetail{
		Sweet:       base,
		AvgRating:   float64(int(d.AvgRating*100+0.5)) / 100,
		ReviewCount: d.ReviewCount,
		Reviews:     resource.Collection(d.Reviews, NewReview),
	}
}

type Purchase struct {
	ID                uint      `json:"id"`
	UserID            uint      `json:"user_id"`
	SweetID           uint      `json:"sweet_id"`
	SweetName         string    `json:"sweet_name,omitempty"`
	QuantityPurchased int       `json:"quantity_purchased"`
	TotalPrice        string    `json:"total_price"`
	PurchasedAt       time.Time `json:"purchased_at"`
}

func NewPurchase(p models.Purchase) Purchase {
	return Purchase{
		ID:                p.ID,
		UserID:            p.UserID,
		SweetID:           p.SweetID,
		SweetName:         p.Sweet.Name,
		QuantityPurchased: p.QuantityPurchased,
		TotalPrice:        p.TotalPrice.StringFixed(2),
		PurchasedAt:       p.PurchasedAt,
	}
}

type Restock struct {
	ID            uint      `json:"id"`
	SweetID       uint      `json:"sweet_id"`
	AdminID       uint      `json:"admin_id"`
	QuantityAdded int       `json:"quantity_added"`
	NewQuantity   int       `json:"new_quantity"`
	RestockedAt   time.Time `json:"restocked_at"`
}

func NewRestock(r services.RestockReceipt) Restock {
	return Restock{
		ID:            r.Restock.ID,
		SweetID:       r.Restock.SweetID,
		AdminID:       r.Restock.AdminID,
		QuantityAdded: r.Restock.QuantityAdded,
		NewQuantity:   r.NewQuantity,
		RestockedAt:   r.Restock.RestockedAt,
	}
}

type Review struct {
	ID        uint      `json:"id"`
	SweetID   uint      `json:"sweet_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func NewReview(r models.Review) Review {
	return Review{
		ID:        r.ID,
		SweetID:   r.SweetID,
		UserID:    r.UserID,
		Username:  r.User.Username,
		Rating:    r.Rating,
		Comment:   lo.EmptyableToPtr(r.Comment),
		CreatedAt: r.CreatedAt,
	}
}

type AuditLog struct {
	ID          uint            `json:"id"`
	UserID      uint            `json:"user_id"`
	Action      string          `json:"action"`
	TargetTable string          `json:"target_table"`
	TargetID    *uint           `json:"target_id"`
	Metadata    models.Metadata `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewAuditLog(l models.AuditLog) AuditLog {
	return AuditLog{
		ID:          l.ID,
		UserID:      l.UserID,
		Action:      l.Action,
		TargetTable: l.TargetTable,
		TargetID:    l.TargetID,
		Metadata:    l.Metadata,
		CreatedAt:   l.CreatedAt,
	}
}
