package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
)

// AuditRecorder appends audit entries inside the caller's transaction, so
// an entry exists exactly when the change it describes was committed.
type AuditRecorder struct {
	repo *repositories.AuditRepository
}

func NewAuditRecorder(repo *repositories.AuditRepository) *AuditRecorder {
	return &AuditRecorder{repo: repo}
}

func (a *AuditRecorder) Record(ctx context.Context, tx *gorm.DB, userID uint, action, table string, targetID uint, meta models.Metadata) error {
	entry := &models.AuditLog{
		UserID:      userID,
		Action:      action,
		TargetTable: table,
		Metadata:    meta,
	}
	if targetID != 0 {
		entry.TargetID = &targetID
	}

	repo := a.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	return repo.Append(ctx, entry)
}
