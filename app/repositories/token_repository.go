package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/mithai/app/models"
)

// TokenRepository tracks revoked token ids until their natural expiry.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Revoke is idempotent.
func (r *TokenRepository) Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	row := models.RevokedToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt.Unix()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (r *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("jti = ?", jti).Count(&n).Error
	return n > 0, err
}

// PruneExpired deletes revocations whose token has expired anyway.
func (r *TokenRepository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now.Unix()).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
