package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/mithai/app/models"
)

// InventoryRepository owns the per-sweet stock counter. Callers pass the
// transaction of their unit of work through WithTx.
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) WithTx(tx *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: tx}
}

// Adjust applies delta to the stock of sweetID and returns the new quantity.
//
// A decrement is one conditional UPDATE, so two concurrent buyers can never
// both take the last unit; when it matches no row the stock was too low (or
// the row is missing) and ErrInsufficientStock is returned. An increment is
// an upsert that creates the row on first restock.
func (r *InventoryRepository) Adjust(ctx context.Context, sweetID uint, delta int) (int, error) {
	db := r.db.WithContext(ctx)
	now := time.Now()

	if delta < 0 {
		res := db.Model(&models.SweetInventory{}).
			Where("sweet_id = ? AND quantity + ? >= 0", sweetID, delta).
			Updates(map[string]any{
				"quantity":   gorm.Expr("quantity + ?", delta),
				"updated_at": now,
			})
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, ErrInsufficientStock
		}
	} else {
		row := models.SweetInventory{SweetID: sweetID, Quantity: delta, UpdatedAt: now}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sweet_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("sweet_inventories.quantity + ?", delta),
				"updated_at": now,
			}),
		}).Create(&row).Error
		if err != nil {
			return 0, err
		}
	}

	return r.Quantity(ctx, sweetID)
}

// Quantity returns the stock of sweetID, zero when it has no row.
func (r *InventoryRepository) Quantity(ctx context.Context, sweetID uint) (int, error) {
	var rows []int
	err := r.db.WithContext(ctx).Model(&models.SweetInventory{}).
		Where("sweet_id = ?", sweetID).
		Limit(1).
		Pluck("quantity", &rows).Error
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return rows[0], nil
}
