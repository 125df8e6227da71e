package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shashiranjanraj/mithai/app/events"
	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/validate"
)

type RegisterInput struct {
	Username     string `json:"username" validate:"required,max=50"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	AddressLine1 string `json:"address_line1" validate:"max=255"`
	AddressLine2 string `json:"address_line2" validate:"max=255"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"max=100"`
	PostalCode   string `json:"postal_code" validate:"max=20"`
	Country      string `json:"country" validate:"max=100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResult is returned by a successful login.
type TokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
	ExpiresAt   time.Time
}

type AuthService struct {
	users  *repositories.UserRepository
	tokens *repositories.TokenRepository
	issuer *auth.TokenManager
	events events.Firer
}

func NewAuthService(users *repositories.UserRepository, tokens *repositories.TokenRepository, issuer *auth.TokenManager, ev events.Firer) *AuthService {
	return &AuthService{users: users, tokens: tokens, issuer: issuer, events: ev}
}

// SanitizeUsername keeps ASCII letters, digits and underscores and lowercases
// the result.
func SanitizeUsername(raw string) string {
	var b strings.Builder
	for _, c := range strings.TrimSpace(raw) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		case c >= 'A' && c <= 'Z':
			b.WriteRune(c + ('a' - 'A'))
		}
	}
	return b.String()
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return models.User{}, apperr.Validation("Validation failed", errs)
	}

	username := SanitizeUsername(in.Username)
	if n := len(username); n < 3 || n > 50 {
		return models.User{}, apperr.Field("username", "The username must contain 3 to 50 letters, digits or underscores.")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return models.User{}, apperr.Database(err)
	}
	if taken {
		return models.User{}, apperr.Conflict("Email already registered")
	}
	taken, err = s.users.UsernameTaken(ctx, username)
	if err != nil {
		return models.User{}, apperr.Database(err)
	}
	if taken {
		return models.User{}, apperr.Conflict("Username already taken")
	}

	role, err := s.users.RoleByName(ctx, auth.RoleCustomer)
	if err != nil {
		return models.User{}, apperr.Database(err)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Database(err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.ID,
		Role:         role,
		AddressLine1: strings.TrimSpace(in.AddressLine1),
		AddressLine2: strings.TrimSpace(in.AddressLine2),
		City:         strings.TrimSpace(in.City),
		State:        strings.TrimSpace(in.State),
		PostalCode:   strings.TrimSpace(in.PostalCode),
		Country:      strings.TrimSpace(in.Country),
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// lost a race with a concurrent registration
			return models.User{}, apperr.Conflict("Email already registered")
		}
		return models.User{}, apperr.Database(err)
	}

	logger.WithCtx(ctx).Info("user registered", "user_id", user.ID, "username", user.Username)
	s.events.FireAsync(ctx, events.UserRegistered, events.UserPayload{User: user})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (TokenResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return TokenResult{}, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return TokenResult{}, apperr.Database(err)
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return TokenResult{}, apperr.Unauthorized("Invalid credentials")
	}

	token, claims, err := s.issuer.Issue(user.ID, user.Role.Name)
	if err != nil {
		return TokenResult{}, apperr.Database(err)
	}

	s.events.FireAsync(ctx, events.UserLoggedIn, events.UserPayload{User: user})
	return TokenResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.issuer.TTL().Seconds()),
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the token the identity was authenticated with.
func (s *AuthService) Logout(ctx context.Context, id auth.Identity) error {
	if err := s.tokens.Revoke(ctx, id.TokenID, id.UserID, id.ExpiresAt); err != nil {
		return apperr.Database(err)
	}
	logger.WithCtx(ctx).Info("token revoked", "user_id", id.UserID)
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return models.User{}, apperr.Database(err)
	}
	return user, nil
}

// PruneRevokedTokens drops revocations of tokens that have expired anyway.
func (s *AuthService) PruneRevokedTokens(ctx context.Context) error {
	n, err := s.tokens.PruneExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		logger.WithCtx(ctx).Info("pruned revoked tokens", "count", n)
	}
	return nil
}
