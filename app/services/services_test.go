package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/events"
	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/app/services"
	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/testkit"
)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) FireAsync(_ context.Context, name string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) fired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate(context.Context) { c.n.Add(1) }

type fixture struct {
	db        *gorm.DB
	events    *recorder
	cache     *countingInvalidator
	purchases *services.PurchaseService
	restocks  *services.RestockService
	reviews   *services.ReviewService
	buyer     models.User
	sweet     models.Sweet
}

func setup(t *testing.T, stock int) *fixture {
	t.Helper()
	db := testkit.OpenDB(t)
	ev := &recorder{}
	inv := &countingInvalidator{}

	catalog := repositories.NewCatalogRepository(db)
	inventory := repositories.NewInventoryRepository(db)
	audit := services.NewAuditRecorder(repositories.NewAuditRepository(db))

	var role models.Role
	require.NoError(t, db.Where("name = ?", "customer").First(&role).Error)
	buyer := models.User{Username: "ravi", Email: "ravi@example.com", PasswordHash: "x", RoleID: role.ID}
	require.NoError(t, db.Omit("Role").Create(&buyer).Error)

	c := models.Category{Name: "Traditional"}
	require.NoError(t, db.Create(&c).Error)
	s := models.Sweet{Name: "Mohanthal", CategoryID: c.ID, Price: decimal.RequireFromString("350.50"), Lifecycle: models.LifecycleActive}
	require.NoError(t, catalog.Create(context.Background(), &s))
	if stock > 0 {
		_, err := inventory.Adjust(context.Background(), s.ID, stock)
		require.NoError(t, err)
	}

	return &fixture{
		db:     db,
		events: ev,
		cache:  inv,
		purchases: services.NewPurchaseService(db, catalog, inventory,
			repositories.NewPurchaseRepository(db), audit, inv, ev),
		restocks: services.NewRestockService(db, catalog, inventory,
			repositories.NewRestockRepository(db), audit, inv, ev),
		reviews: services.NewReviewService(catalog, repositories.NewReviewRepository(db)),
		buyer:   buyer,
		sweet:   s,
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	n, err := repositories.NewInventoryRepository(f.db).Quantity(context.Background(), f.sweet.ID)
	require.NoError(t, err)
	return n
}

func (f *fixture) auditRows(t *testing.T, action string) []models.AuditLog {
	t.Helper()
	var rows []models.AuditLog
	require.NoError(t, f.db.Where("action = ?", action).Find(&rows).Error)
	return rows
}

func TestPurchaseCommitsEverything(t *testing.T) {
	f := setup(t, 5)

	p, err := f.purchases.Purchase(context.Background(), f.buyer.ID, services.PurchaseInput{SweetID: f.sweet.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "1051.50", p.TotalPrice.StringFixed(2))
	assert.Equal(t, 2, f.stock(t))

	rows := f.auditRows(t, models.ActionPurchase)
	require.Len(t, rows, 1)
	assert.Equal(t, "purchases", rows[0].TargetTable)
	require.NotNil(t, rows[0].TargetID)
	assert.Equal(t, p.ID, *rows[0].TargetID)
	assert.EqualValues(t, 3, rows[0].Metadata["quantity_purchased"])
	assert.Equal(t, "1051.50", rows[0].Metadata["total_price"])

	assert.Equal(t, []string{events.PurchaseCompleted}, f.events.fired())
	assert.EqualValues(t, 1, f.cache.n.Load(), "catalog cache dropped once the purchase committed")
}

func TestPurchaseFailuresLeaveNoTrace(t *testing.T) {
	tests := []struct {
		name string
		in   services.PurchaseInput
		kind apperr.Kind
	}{
		{"zero quantity", services.PurchaseInput{SweetID: 1, Quantity: 0}, apperr.KindValidation},
		{"negative quantity", services.PurchaseInput{SweetID: 1, Quantity: -2}, apperr.KindValidation},
		{"unknown sweet", services.PurchaseInput{SweetID: 999, Quantity: 1}, apperr.KindNotFound},
		{"more than stock", services.PurchaseInput{Quantity: 6}, apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, 5)
			if tt.in.SweetID == 0 {
				tt.in.SweetID = f.sweet.ID
			}

			_, err := f.purchases.Purchase(context.Background(), f.buyer.ID, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))

			assert.Equal(t, 5, f.stock(t))
			assert.Empty(t, f.auditRows(t, models.ActionPurchase))
			var n int64
			require.NoError(t, f.db.Model(&models.Purchase{}).Count(&n).Error)
			assert.Zero(t, n)
			assert.Empty(t, f.events.fired())
			assert.Zero(t, f.cache.n.Load())
		})
	}
}

func TestPurchaseOfDeletedSweet(t *testing.T) {
	f := setup(t, 5)
	require.NoError(t, repositories.NewCatalogRepository(f.db).SoftDelete(context.Background(), f.sweet.ID))

	_, err := f.purchases.Purchase(context.Background(), f.buyer.ID, services.PurchaseInput{SweetID: f.sweet.ID, Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, 5, f.stock(t))
}

func TestRestockCreatesMissingInventory(t *testing.T) {
	f := setup(t, 0)

	receipt, err := f.restocks.Restock(context.Background(), f.buyer.ID, services.RestockInput{SweetID: f.sweet.ID, QuantityAdded: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, receipt.NewQuantity)
	assert.Equal(t, 7, f.stock(t))

	receipt, err = f.restocks.Restock(context.Background(), f.buyer.ID, services.RestockInput{SweetID: f.sweet.ID, QuantityAdded: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, receipt.NewQuantity)

	rows := f.auditRows(t, models.ActionRestock)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 7, rows[0].Metadata["quantity_added"])
	assert.Equal(t, []string{events.InventoryRestocked, events.InventoryRestocked}, f.events.fired())
	assert.EqualValues(t, 2, f.cache.n.Load())
}

func TestRestockRejects(t *testing.T) {
	f := setup(t, 1)

	_, err := f.restocks.Restock(context.Background(), f.buyer.ID, services.RestockInput{SweetID: f.sweet.ID, QuantityAdded: 0})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.restocks.Restock(context.Background(), f.buyer.ID, services.RestockInput{SweetID: 404, QuantityAdded: 1})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.Equal(t, 1, f.stock(t))
	assert.Empty(t, f.auditRows(t, models.ActionRestock))
	assert.Zero(t, f.cache.n.Load())
}

func TestReviewRules(t *testing.T) {
	f := setup(t, 0)
	ctx := context.Background()

	_, err := f.reviews.Create(ctx, f.buyer.ID, services.ReviewInput{SweetID: f.sweet.ID, Rating: 6})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.reviews.Create(ctx, f.buyer.ID, services.ReviewInput{SweetID: f.sweet.ID, Rating: 4, Comment: "1; DELETE FROM users"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, "Invalid comment detected", e.Message)

	_, err = f.reviews.Create(ctx, f.buyer.ID, services.ReviewInput{SweetID: 999, Rating: 4})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	review, err := f.reviews.Create(ctx, f.buyer.ID, services.ReviewInput{SweetID: f.sweet.ID, Rating: 4, Comment: "  Rich and fresh  "})
	require.NoError(t, err)
	assert.Equal(t, "Rich and fresh", review.Comment)

	_, err = f.reviews.Create(ctx, f.buyer.ID, services.ReviewInput{SweetID: f.sweet.ID, Rating: 5})
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, "You have already reviewed this sweet", e.Message)

	list, err := f.reviews.ForSweet(ctx, f.sweet.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ravi", list[0].User.Username)
}

func TestSanitizeUsername(t *testing.T) {
	tests := map[string]string{
		"Ravi_Patel":      "ravi_patel",
		"  ravi.patel! ":  "ravipatel",
		"<script>x</b>":   "scriptxb",
		"ÄÖÜ":             "",
		"Admin-GJ 2026":   "admingj2026",
	}
	for in, want := range tests {
		assert.Equal(t, want, services.SanitizeUsername(in), in)
	}
}

func TestLooksLikeSQL(t *testing.T) {
	assert.True(t, services.LooksLikeSQL("x' UNION SELECT password FROM users"))
	assert.True(t, services.LooksLikeSQL("drop it; delete from reviews"))
	assert.True(t, services.LooksLikeSQL("EXEC xp_cmdshell"))
	assert.False(t, services.LooksLikeSQL("Best jalebi, selected for Diwali"))
	assert.False(t, services.LooksLikeSQL(""))
}

func TestParseSearch(t *testing.T) {
	f, err := services.ParseSearch(services.SearchQuery{Name: " peda ", MinPrice: "100", MaxPrice: "250.50"})
	require.NoError(t, err)
	assert.Equal(t, "peda", f.Name)
	assert.Equal(t, "100", f.MinPrice.String())
	assert.Equal(t, "250.5", f.MaxPrice.String())

	_, err = services.ParseSearch(services.SearchQuery{MinPrice: "300", MaxPrice: "100"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Fields, "min_price")

	_, err = services.ParseSearch(services.SearchQuery{MaxPrice: "-1"})
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Fields, "max_price")

	_, err = services.ParseSearch(services.SearchQuery{MinPrice: "abc"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
