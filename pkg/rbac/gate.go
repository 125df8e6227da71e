// Package rbac is the access gate in front of every authenticated route.
//
// A request passes in two steps. The bearer token is verified
// cryptographically first. The subject is then re-read from the store and the
// role claim must equal the stored role. Route-level role requirements are
// checked against the stored role, never against the claim.
//
//	gate := rbac.NewGate(tokens, users, revocations)
//	api := r.Group("/api", gate.Authenticate)
//	admin := api.Group("/admin", gate.RequireRole(auth.RoleAdmin))
package rbac

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/response"
)

// ErrUnknownUser is returned by a UserLookup when the subject does not exist.
var ErrUnknownUser = errors.New("rbac: unknown user")

// Principal is the stored truth about a token subject.
type Principal struct {
	ID       uint
	Username string
	Role     string
}

type UserLookup interface {
	Principal(ctx context.Context, id uint) (Principal, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Gate struct {
	tokens  *auth.TokenManager
	users   UserLookup
	revoked RevocationChecker
}

// NewGate builds a gate. revoked may be nil, in which case logout has no effect.
func NewGate(tokens *auth.TokenManager, users UserLookup, revoked RevocationChecker) *Gate {
	return &Gate{tokens: tokens, users: users, revoked: revoked}
}

// Authenticate verifies the bearer token and stores the confirmed identity in
// the request context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r.Header.Get("Authorization"))
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims, err := g.tokens.Parse(raw)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				response.Error(w, http.StatusUnauthorized, "Token expired")
				return
			}
			response.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		log := logger.WithCtx(r.Context())

		if g.revoked != nil {
			revoked, err := g.revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				log.Error("revocation lookup failed", "error", err)
				response.Error(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			if revoked {
				response.Error(w, http.StatusUnauthorized, "Token revoked")
				return
			}
		}

		userID, _ := claims.UserID()
		p, err := g.users.Principal(r.Context(), userID)
		switch {
		case errors.Is(err, ErrUnknownUser):
			response.Error(w, http.StatusUnauthorized, "User not found")
			return
		case err != nil:
			log.Error("principal lookup failed", "user_id", userID, "error", err)
			response.Error(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if p.Role != claims.Role {
			log.Warn("role claim mismatch", "user_id", userID, "claimed", claims.Role, "stored", p.Role)
			response.Error(w, http.StatusForbidden, "Role verification failed")
			return
		}

		id := auth.Identity{
			UserID:    p.ID,
			Username:  p.Username,
			Role:      p.Role,
			TokenID:   claims.ID,
			ExpiresAt: claims.ExpiresAt.Time,
		}
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = logger.InjectLogger(ctx, log.With("user_id", p.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only identities whose stored role is one of roles.
// It must run after Authenticate.
func (g *Gate) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !allowed[id.Role] {
				response.Error(w, http.StatusForbidden, forbiddenMessage(roles))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forbiddenMessage(roles []string) string {
	if len(roles) == 1 && roles[0] == auth.RoleAdmin {
		return "Admin access required"
	}
	return "Forbidden"
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
