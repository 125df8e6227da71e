//go:build integration

package services_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/events"
	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/app/services"
	_ "github.com/shashiranjanraj/mithai/database/migrations"
	"github.com/shashiranjanraj/mithai/database/seeders"
	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/database"
	"github.com/shashiranjanraj/mithai/pkg/migration"
)

func postgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mithai"),
		postgres.WithUsername("mithai"),
		postgres.WithPassword("mithai"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, migration.New(db, io.Discard).Run(ctx))
	require.NoError(t, seeders.SeedRoles(ctx, db))
	return db
}

func TestConcurrentPurchasesOnPostgres(t *testing.T) {
	const (
		stock  = 10
		buyers = 25
	)
	ctx := context.Background()
	db := postgresDB(t)

	catalog := repositories.NewCatalogRepository(db)
	inventory := repositories.NewInventoryRepository(db)
	svc := services.NewPurchaseService(db, catalog, inventory, repositories.NewPurchaseRepository(db),
		services.NewAuditRecorder(repositories.NewAuditRepository(db)), nil, events.Nop{})

	c := models.Category{Name: "Festival Sweets"}
	require.NoError(t, db.Create(&c).Error)
	sweet := models.Sweet{Name: "Jalebi", CategoryID: c.ID, Price: decimal.NewFromInt(220), Lifecycle: models.LifecycleActive}
	require.NoError(t, catalog.Create(ctx, &sweet))
	_, err := inventory.Adjust(ctx, sweet.ID, stock)
	require.NoError(t, err)

	var role models.Role
	require.NoError(t, db.Where("name = ?", "customer").First(&role).Error)
	ids := make([]uint, buyers)
	for i := range ids {
		u := models.User{
			Username:     fmt.Sprintf("buyer_%02d", i),
			Email:        fmt.Sprintf("buyer%02d@example.com", i),
			PasswordHash: "x",
			RoleID:       role.ID,
		}
		require.NoError(t, db.Omit("Role").Create(&u).Error)
		ids[i] = u.ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		accepted  int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for _, id := range ids {
		wg.Add(1)
		go func(buyer uint) {
			defer wg.Done()
			<-start
			_, err := svc.Purchase(ctx, buyer, services.PurchaseInput{SweetID: sweet.ID, Quantity: 1})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(id)
	}
	close(start)
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, stock, accepted)
	assert.Equal(t, buyers-stock, conflicts)

	left, err := inventory.Quantity(ctx, sweet.ID)
	require.NoError(t, err)
	assert.Zero(t, left)

	var purchases, audits int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&purchases).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", models.ActionPurchase).Count(&audits).Error)
	assert.EqualValues(t, stock, purchases)
	assert.EqualValues(t, stock, audits)
}
