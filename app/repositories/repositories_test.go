package repositories_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/pkg/testkit"
)

func category(t *testing.T, db *gorm.DB, name string) models.Category {
	t.Helper()
	c := models.Category{Name: name}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func sweet(t *testing.T, db *gorm.DB, c models.Category, name, price string) models.Sweet {
	t.Helper()
	s := models.Sweet{
		Name:       name,
		CategoryID: c.ID,
		Price:      decimal.RequireFromString(price),
		Lifecycle:  models.LifecycleActive,
	}
	require.NoError(t, repositories.NewCatalogRepository(db).Create(context.Background(), &s))
	return s
}

func TestAdjustDecrement(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	inv := repositories.NewInventoryRepository(db)
	s := sweet(t, db, category(t, db, "Farsan"), "Khaman", "120")

	_, err := inv.Adjust(ctx, s.ID, -1)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock, "missing row")

	n, err := inv.Adjust(ctx, s.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = inv.Adjust(ctx, s.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = inv.Adjust(ctx, s.ID, -1)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)

	n, err = inv.Quantity(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAdjustIncrementUpserts(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	inv := repositories.NewInventoryRepository(db)
	s := sweet(t, db, category(t, db, "Festival"), "Peda", "180")

	n, err := inv.Adjust(ctx, s.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = inv.Adjust(ctx, s.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	var rows int64
	require.NoError(t, db.Model(&models.SweetInventory{}).Where("sweet_id = ?", s.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestAdjustRollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	inv := repositories.NewInventoryRepository(db)
	s := sweet(t, db, category(t, db, "Traditional"), "Ghari", "400")
	_, err := inv.Adjust(ctx, s.ID, 10)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := inv.WithTx(tx).Adjust(ctx, s.ID, -4); err != nil {
			return err
		}
		return repositories.ErrInsufficientStock
	})
	require.Error(t, err)

	n, err := inv.Quantity(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	catalog := repositories.NewCatalogRepository(db)

	traditional := category(t, db, "Traditional")
	farsan := category(t, db, "Farsan")
	mohanthal := sweet(t, db, traditional, "Mohanthal", "350")
	basundi := sweet(t, db, traditional, "Basundi", "300")
	khaman := sweet(t, db, farsan, "Khaman", "120")
	percent := sweet(t, db, farsan, "100% Chikki", "90")
	gone := sweet(t, db, traditional, "Mohan Thal Old", "200")
	require.NoError(t, catalog.SoftDelete(ctx, gone.ID))

	ids := func(sweets []models.Sweet) []uint {
		out := []uint{}
		for _, s := range sweets {
			out = append(out, s.ID)
		}
		return out
	}
	price := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	tests := []struct {
		name   string
		filter repositories.SearchFilter
		want   []uint
	}{
		{"all active", repositories.SearchFilter{}, []uint{mohanthal.ID, basundi.ID, khaman.ID, percent.ID}},
		{"name is case-insensitive", repositories.SearchFilter{Name: "MOHAN"}, []uint{mohanthal.ID}},
		{"percent is literal", repositories.SearchFilter{Name: "%"}, []uint{percent.ID}},
		{"underscore is literal", repositories.SearchFilter{Name: "_"}, []uint{}},
		{"category", repositories.SearchFilter{Category: "farsan"}, []uint{khaman.ID, percent.ID}},
		{"price bounds inclusive", repositories.SearchFilter{MinPrice: price("120"), MaxPrice: price("300")}, []uint{basundi.ID, khaman.ID}},
		{"no match", repositories.SearchFilter{Name: "Jalebi"}, []uint{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := catalog.Search(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	catalog := repositories.NewCatalogRepository(db)
	s := sweet(t, db, category(t, db, "Festival"), "Jalebi", "220")

	require.NoError(t, catalog.SoftDelete(ctx, s.ID))
	assert.ErrorIs(t, catalog.SoftDelete(ctx, s.ID), repositories.ErrNotFound)

	_, err := catalog.FindActive(ctx, s.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	var row models.Sweet
	require.NoError(t, db.First(&row, s.ID).Error)
	assert.Equal(t, models.LifecycleDeleted, row.Lifecycle)
}

func TestDuplicates(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	catalog := repositories.NewCatalogRepository(db)

	require.NoError(t, catalog.CreateCategory(ctx, &models.Category{Name: "Farsan"}))
	assert.ErrorIs(t, catalog.CreateCategory(ctx, &models.Category{Name: "Farsan"}), repositories.ErrDuplicate)

	found, err := catalog.FindCategoryByName(ctx, " farsan ")
	require.NoError(t, err)
	assert.Equal(t, "Farsan", found.Name)

	var role models.Role
	require.NoError(t, db.Where("name = ?", "customer").First(&role).Error)
	user := models.User{Username: "ravi", Email: "ravi@example.com", PasswordHash: "x", RoleID: role.ID}
	require.NoError(t, db.Omit("Role").Create(&user).Error)

	s := sweet(t, db, found, "Khaman", "120")
	reviews := repositories.NewReviewRepository(db)
	require.NoError(t, reviews.Create(ctx, &models.Review{UserID: user.ID, SweetID: s.ID, Rating: 5}))
	assert.ErrorIs(t, reviews.Create(ctx, &models.Review{UserID: user.ID, SweetID: s.ID, Rating: 3}), repositories.ErrDuplicate)

	avg, count, err := reviews.Rating(ctx, s.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.InDelta(t, 5.0, avg, 0.001)
}
