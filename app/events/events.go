// Package events names the domain events and their payloads.
package events

import (
	"context"

	"github.com/shashiranjanraj/mithai/app/models"
)

const (
	UserRegistered     = "user.registered"
	UserLoggedIn       = "user.login"
	PurchaseCompleted  = "purchase.completed"
	InventoryRestocked = "inventory.restocked"
	CatalogChanged     = "catalog.changed"
)

// Firer is the part of the dispatcher services depend on.
type Firer interface {
	FireAsync(ctx context.Context, name string, payload any)
}

type Nop struct{}

func (Nop) FireAsync(context.Context, string, any) {}

type UserPayload struct {
	User models.User
}

type PurchasePayload struct {
	Purchase  models.Purchase
	SweetName string
	Remaining int
}

type RestockPayload struct {
	Restock   models.Restock
	SweetName string
	Quantity  int
}

type CatalogPayload struct {
	Action  string
	SweetID uint
}
