package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/pkg/migration"
	"github.com/shashiranjanraj/mithai/pkg/ratelimit"
)

func init() {
	migration.Register("20260101000000_create_users_table", &CreateUsersTable{})
	migration.Register("20260101000001_create_revoked_tokens_table", &CreateRevokedTokensTable{})
	migration.Register("20260101000002_create_catalog_tables", &CreateCatalogTables{})
	migration.Register("20260101000003_create_purchases_and_restocks_tables", &CreateOrderTables{})
	migration.Register("20260101000004_create_reviews_table", &CreateReviewsTable{})
	migration.Register("20260101000005_create_audit_logs_table", &CreateAuditLogsTable{})
	migration.Register("20260101000006_create_rate_limit_counters_table", migration.Func{
		UpFn:   func(db *gorm.DB) error { return db.AutoMigrate(&ratelimit.Counter{}) },
		DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable(&ratelimit.Counter{}) },
	})
}

// -------- 0000: roles, users --------

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Role{}, &models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.User{}, &models.Role{})
}

// -------- 0001: revoked_tokens --------

type CreateRevokedTokensTable struct{}

func (m *CreateRevokedTokensTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.RevokedToken{})
}

func (m *CreateRevokedTokensTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.RevokedToken{})
}

// -------- 0002: categories, sweets, sweet_inventories --------

type CreateCatalogTables struct{}

func (m *CreateCatalogTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Category{}, &models.Sweet{}, &models.SweetInventory{})
}

func (m *CreateCatalogTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.SweetInventory{}, &models.Sweet{}, &models.Category{})
}

// -------- 0003: purchases, restocks --------

type CreateOrderTables struct{}

func (m *CreateOrderTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Purchase{}, &models.Restock{})
}

func (m *CreateOrderTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Restock{}, &models.Purchase{})
}

// -------- 0004: reviews --------

type CreateReviewsTable struct{}

func (m *CreateReviewsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Review{})
}

func (m *CreateReviewsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Review{})
}

// -------- 0005: audit_logs --------

type CreateAuditLogsTable struct{}

func (m *CreateAuditLogsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.AuditLog{})
}

func (m *CreateAuditLogsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.AuditLog{})
}
