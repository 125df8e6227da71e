package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) WithTx(tx *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: tx}
}

func (r *PurchaseRepository) Create(ctx context.Context, p *models.Purchase) error {
	return r.db.WithContext(ctx).Omit("User", "Sweet").Create(p).Error
}

// ListByUser returns the buyer's purchases, newest first, with the sweet
// preloaded even when it has since been deleted.
func (r *PurchaseRepository) ListByUser(ctx context.Context, userID uint) ([]models.Purchase, error) {
	purchases := []models.Purchase{}
	err := r.db.WithContext(ctx).
		Preload("Sweet").
		Where("user_id = ?", userID).
		Order("purchased_at DESC, id DESC").
		Find(&purchases).Error
	return purchases, err
}

type RestockRepository struct {
	db *gorm.DB
}

func NewRestockRepository(db *gorm.DB) *RestockRepository {
	return &RestockRepository{db: db}
}

func (r *RestockRepository) WithTx(tx *gorm.DB) *RestockRepository {
	return &RestockRepository{db: tx}
}

func (r *RestockRepository) Create(ctx context.Context, rs *models.Restock) error {
	return r.db.WithContext(ctx).Omit("Admin", "Sweet").Create(rs).Error
}
