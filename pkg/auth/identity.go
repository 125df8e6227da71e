// Package auth issues and verifies access tokens, hashes passwords and
// carries the authenticated identity through the request context.
package auth

import (
	"context"
	"time"
)

// Identity is the caller as confirmed against the store by the access gate.
type Identity struct {
	UserID    uint
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by the access gate.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
