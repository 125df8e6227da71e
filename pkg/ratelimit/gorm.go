package ratelimit

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter is one window of one subject in the relational store.
type Counter struct {
	Bucket    string `gorm:"primaryKey;size:191"`
	Count     int64  `gorm:"not null"`
	ExpiresAt int64  `gorm:"not null;index"`
}

func (Counter) TableName() string { return "rate_limit_counters" }

// GormStore keeps counters in the rate_limit_counters table. It is used when
// Redis is not configured.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	row := Counter{Bucket: key, Count: 1, ExpiresAt: s.now().Add(window).Unix()}

	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bucket"}},
			DoUpdates: clause.Assignments(map[string]any{"count": gorm.Expr("rate_limit_counters.count + 1")}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Model(&Counter{}).Where("bucket = ?", key).Pluck("count", &count).Error
	})
	return count, err
}

// Prune deletes windows that expired before now.
func (s *GormStore) Prune(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now.Unix()).Delete(&Counter{})
	return res.RowsAffected, res.Error
}
