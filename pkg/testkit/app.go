// Package testkit boots the full HTTP application over an isolated
// in-memory SQLite database for end-to-end tests.
//
//	func TestPurchase(t *testing.T) {
//	    app := testkit.New(t)
//	    buyer := app.CreateUser(t, "ravi", auth.RoleCustomer)
//	    sweet := app.CreateSweet(t, "Peda", "180.00", 5)
//
//	    res := app.Do(t, http.MethodPost, "/api/purchases",
//	        map[string]any{"sweet_id": sweet.ID, "quantity": 2}, app.TokenFor(t, buyer))
//	    res.AssertStatus(t, http.StatusCreated)
//	    assert.Equal(t, "360.00", res.JSON("data.total_price").String())
//	}
package testkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/models"
	_ "github.com/shashiranjanraj/mithai/database/migrations"
	"github.com/shashiranjanraj/mithai/database/seeders"
	"github.com/shashiranjanraj/mithai/internal/kernel"
	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/database"
	"github.com/shashiranjanraj/mithai/pkg/event"
	"github.com/shashiranjanraj/mithai/pkg/migration"
	"github.com/shashiranjanraj/mithai/pkg/workerpool"
)

// DefaultPassword is the password of every user made by CreateUser.
const DefaultPassword = "password123"

type App struct {
	DB     *gorm.DB
	Kernel *kernel.Kernel
	Tokens *auth.TokenManager
	Events *event.Dispatcher

	handler http.Handler
}

type Option func(*kernel.Options)

// WithRateLimit sets both the per-user and the public auth limit.
func WithRateLimit(perMinute int) Option {
	return func(o *kernel.Options) {
		o.RateLimit = perMinute
		o.AuthRateLimit = perMinute
	}
}

// WithClock freezes the rate limiter clock so windows do not roll over
// mid-test.
func WithClock(now func() time.Time) Option {
	return func(o *kernel.Options) { o.Now = now }
}

// WithRedis backs the catalog cache and the rate limiter with rdb.
func WithRedis(rdb redis.UniversalClient) Option {
	return func(o *kernel.Options) { o.Redis = rdb }
}

func WithLowStockThreshold(n int) Option {
	return func(o *kernel.Options) { o.LowStockThreshold = n }
}

// OpenDB returns a migrated in-memory database private to t, with the
// roles seeded.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Connect(ctx, "sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, migration.New(db, io.Discard).Run(ctx))
	require.NoError(t, seeders.SeedRoles(ctx, db))
	return db
}

// New boots the application. Events run on a two-worker pool that is
// drained before the database closes.
func New(t testing.TB, opts ...Option) *App {
	t.Helper()

	db := OpenDB(t)
	pool := workerpool.New(2)
	dispatcher := event.NewDispatcher(pool)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	tokens := auth.NewTokenManager("testkit-secret", 30*time.Minute)
	o := kernel.Options{
		DB:                db,
		Events:            dispatcher,
		Tokens:            tokens,
		RateLimit:         10000,
		AuthRateLimit:     10000,
		CORSOrigins:       []string{"*"},
		LowStockThreshold: 10,
	}
	for _, opt := range opts {
		opt(&o)
	}

	k := kernel.New(o)
	return &App{DB: db, Kernel: k, Tokens: tokens, Events: dispatcher, handler: k.Handler()}
}

func (a *App) Handler() http.Handler { return a.handler }

type Response struct {
	Code   int
	Header http.Header
	Body   []byte
}

// JSON reads a gjson path from the body, e.g. "data.items.#".
func (r *Response) JSON(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

func (r *Response) AssertStatus(t testing.TB, code int) {
	t.Helper()
	assert.Equal(t, code, r.Code, "body: %s", r.Body)
}

// Do sends a request through the full middleware stack. body is encoded as
// JSON unless it is already a string or []byte. An empty token sends no
// Authorization header.
func (a *App) Do(t testing.TB, method, path string, body any, token string) *Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return &Response{Code: rec.Code, Header: rec.Header(), Body: rec.Body.Bytes()}
}

// CreateUser inserts a user with DefaultPassword and the given role.
func (a *App) CreateUser(t testing.TB, username, role string) models.User {
	t.Helper()

	var r models.Role
	require.NoError(t, a.DB.Where("name = ?", role).First(&r).Error)

	hash, err := auth.HashPassword(DefaultPassword)
	require.NoError(t, err)

	u := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		RoleID:       r.ID,
		Role:         r,
	}
	require.NoError(t, a.DB.Omit("Role").Create(&u).Error)
	return u
}

// TokenFor issues an access token carrying the user's current role.
func (a *App) TokenFor(t testing.TB, u models.User) string {
	t.Helper()
	role := u.Role.Name
	if role == "" {
		var r models.Role
		require.NoError(t, a.DB.First(&r, u.RoleID).Error)
		role = r.Name
	}
	token, _, err := a.Tokens.Issue(u.ID, role)
	require.NoError(t, err)
	return token
}

func (a *App) CreateCategory(t testing.TB, name string) models.Category {
	t.Helper()
	c := models.Category{Name: name}
	require.NoError(t, a.DB.Where(models.Category{Name: name}).FirstOrCreate(&c).Error)
	return c
}

// CreateSweet inserts an active sweet in the "Traditional" category with
// the given stock.
func (a *App) CreateSweet(t testing.TB, name, price string, stock int) models.Sweet {
	t.Helper()
	return a.CreateSweetIn(t, a.CreateCategory(t, "Traditional"), name, price, stock)
}

func (a *App) CreateSweetIn(t testing.TB, c models.Category, name, price string, stock int) models.Sweet {
	t.Helper()

	s := models.Sweet{
		Name:       name,
		CategoryID: c.ID,
		Price:      decimal.RequireFromString(price),
		Lifecycle:  models.LifecycleActive,
	}
	require.NoError(t, a.DB.Omit("Category", "Inventory").Create(&s).Error)
	require.NoError(t, a.DB.Create(&models.SweetInventory{SweetID: s.ID, Quantity: stock}).Error)
	s.Category = c
	return s
}

// Stock reads the current inventory of a sweet.
func (a *App) Stock(t testing.TB, sweetID uint) int {
	t.Helper()
	var inv models.SweetInventory
	require.NoError(t, a.DB.Where("sweet_id = ?", sweetID).First(&inv).Error)
	return inv.Quantity
}
