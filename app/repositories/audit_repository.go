package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/pkg/orm"
)

type AuditFilter struct {
	Action string
	UserID uint
	Page   orm.Page
}

// AuditRepository appends to and reads the audit trail. There is no update
// or delete.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) WithTx(tx *gorm.DB) *AuditRepository {
	return &AuditRepository{db: tx}
}

func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns one page of entries, newest first, and the total matching.
func (r *AuditRepository) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if f.Action != "" {
			db = db.Where("action = ?", f.Action)
		}
		if f.UserID != 0 {
			db = db.Where("user_id = ?", f.UserID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.AuditLog{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	logs := []models.AuditLog{}
	err := r.db.WithContext(ctx).Scopes(filter, f.Page.Scope()).Order("id DESC").Find(&logs).Error
	return logs, total, err
}
