package migration_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shashiranjanraj/mithai/pkg/migration"
)

type widget struct {
	ID   uint
	Name string
}

type gadget struct {
	ID uint
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func table(model any) migration.Func {
	return migration.Func{
		UpFn:   func(db *gorm.DB) error { return db.AutoMigrate(model) },
		DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable(model) },
	}
}

func TestRunRollbackStatus(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	var out bytes.Buffer

	first := []migration.Entry{{Name: "20260101000000_widgets", Migration: table(&widget{})}}
	runner := migration.New(db, &out).WithEntries(first)
	require.NoError(t, runner.Run(ctx))
	assert.True(t, db.Migrator().HasTable(&widget{}))

	out.Reset()
	require.NoError(t, runner.Run(ctx))
	assert.Contains(t, out.String(), "Nothing to migrate.")

	both := append(first, migration.Entry{Name: "20260102000000_gadgets", Migration: table(&gadget{})})
	runner = runner.WithEntries(both)
	pending, err := runner.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "20260102000000_gadgets", pending[0].Name)

	require.NoError(t, runner.Run(ctx))
	assert.True(t, db.Migrator().HasTable(&gadget{}))

	out.Reset()
	require.NoError(t, runner.Status(ctx))
	assert.Regexp(t, `20260101000000_widgets\s+Ran\s+1`, out.String())
	assert.Regexp(t, `20260102000000_gadgets\s+Ran\s+2`, out.String())

	// Only the second batch is rolled back.
	require.NoError(t, runner.Rollback(ctx))
	assert.False(t, db.Migrator().HasTable(&gadget{}))
	assert.True(t, db.Migrator().HasTable(&widget{}))

	out.Reset()
	require.NoError(t, runner.Status(ctx))
	assert.Regexp(t, `20260102000000_gadgets\s+Pending`, out.String())
}

func TestRollbackWithNothingApplied(t *testing.T) {
	var out bytes.Buffer
	runner := migration.New(openDB(t), &out).WithEntries(nil)
	require.NoError(t, runner.Rollback(context.Background()))
	assert.Contains(t, out.String(), "Nothing to roll back.")
}
