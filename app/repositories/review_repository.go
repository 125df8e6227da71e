package repositories

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Exists(ctx context.Context, userID, sweetID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("user_id = ? AND sweet_id = ?", userID, sweetID).
		Count(&n).Error
	return n > 0, err
}

// Create returns ErrDuplicate when the user already reviewed the sweet.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return translate(r.db.WithContext(ctx).Omit("User").Create(review).Error)
}

// ListBySweet returns reviews newest first with their authors.
func (r *ReviewRepository) ListBySweet(ctx context.Context, sweetID uint) ([]models.Review, error) {
	reviews := []models.Review{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("sweet_id = ?", sweetID).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	return reviews, err
}

// Rating returns the average rating and review count of a sweet.
func (r *ReviewRepository) Rating(ctx context.Context, sweetID uint) (float64, int64, error) {
	var row struct {
		Avg   sql.NullFloat64
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("AVG(rating * 1.0) AS avg, COUNT(*) AS count").
		Where("sweet_id = ?", sweetID).
		Scan(&row).Error
	return row.Avg.Float64, row.Count, err
}
