// Package kernel assembles the HTTP application: repositories, services,
// controllers, the access gate, rate limiters and the global middleware
// stack.
package kernel

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/app/controllers"
	"github.com/shashiranjanraj/mithai/app/events"
	"github.com/shashiranjanraj/mithai/app/listeners"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/app/routes"
	"github.com/shashiranjanraj/mithai/app/services"
	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/cache"
	"github.com/shashiranjanraj/mithai/pkg/database"
	"github.com/shashiranjanraj/mithai/pkg/event"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/metrics"
	"github.com/shashiranjanraj/mithai/pkg/middleware"
	"github.com/shashiranjanraj/mithai/pkg/ratelimit"
	"github.com/shashiranjanraj/mithai/pkg/rbac"
	"github.com/shashiranjanraj/mithai/pkg/reqid"
	"github.com/shashiranjanraj/mithai/pkg/response"
	"github.com/shashiranjanraj/mithai/pkg/router"
)

type Options struct {
	DB *gorm.DB
	// Redis backs the catalog cache and the rate limiter when set.
	Redis redis.UniversalClient
	// Events receives domain events. Nil disables them.
	Events *event.Dispatcher

	Tokens            *auth.TokenManager
	CacheTTL          time.Duration
	RateLimit         int
	AuthRateLimit     int
	CORSOrigins       []string
	LowStockThreshold int
	// Now overrides the rate limiter clock.
	Now func() time.Time
}

// Kernel is the wired application. Auth and RateStore are exposed for the
// maintenance jobs.
type Kernel struct {
	Router    *router.Router
	Auth      *services.AuthService
	Catalog   *services.CatalogService
	RateStore ratelimit.Store

	db *gorm.DB
}

func New(opts Options) *Kernel {
	db := opts.DB

	var firer events.Firer = events.Nop{}
	if opts.Events != nil {
		firer = opts.Events
	}

	var rateStore ratelimit.Store = ratelimit.NewGormStore(db)
	if opts.Redis != nil {
		rateStore = ratelimit.NewRedisStore(opts.Redis)
	}

	users := repositories.NewUserRepository(db)
	tokens := repositories.NewTokenRepository(db)
	catalog := repositories.NewCatalogRepository(db)
	inventory := repositories.NewInventoryRepository(db)
	reviews := repositories.NewReviewRepository(db)
	auditLogs := repositories.NewAuditRepository(db)
	audit := services.NewAuditRecorder(auditLogs)

	authService := services.NewAuthService(users, tokens, opts.Tokens, firer)
	catalogService := services.NewCatalogService(db, catalog, inventory, reviews, audit,
		cache.New(opts.Redis, "catalog"), opts.CacheTTL, firer)
	purchaseService := services.NewPurchaseService(db, catalog, inventory,
		repositories.NewPurchaseRepository(db), audit, catalogService, firer)
	restockService := services.NewRestockService(db, catalog, inventory,
		repositories.NewRestockRepository(db), audit, catalogService, firer)

	if opts.Events != nil {
		listeners.Register(opts.Events, listeners.Options{
			LowStockThreshold: opts.LowStockThreshold,
		})
	}

	r := router.New()
	// outermost first: metrics sees total latency, recovery guards
	// everything below it, request ids exist before anything logs
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.CORSFromOrigins(opts.CORSOrigins)))

	k := &Kernel{
		Router:    r,
		Auth:      authService,
		Catalog:   catalogService,
		RateStore: rateStore,
		db:        db,
	}

	r.Get("/health", "health", k.health)
	r.Get("/metrics", "metrics", metrics.Handler())

	routes.RegisterAPI(r, routes.Controllers{
		Auth:       controllers.NewAuthController(authService),
		Sweets:     controllers.NewSweetController(catalogService),
		Categories: controllers.NewCategoryController(catalogService),
		Purchases:  controllers.NewPurchaseController(purchaseService),
		Reviews:    controllers.NewReviewController(services.NewReviewService(catalog, reviews)),
		Admin:      controllers.NewAdminController(services.NewAdminService(users, auditLogs, audit), restockService),
	}, routes.Guards{
		Gate:   rbac.NewGate(opts.Tokens, users, tokens),
		Public: limiter(rateStore, opts.AuthRateLimit, opts.Now),
		Users:  limiter(rateStore, opts.RateLimit, opts.Now),
	})

	return k
}

func limiter(store ratelimit.Store, perMinute int, now func() time.Time) *ratelimit.Limiter {
	l := ratelimit.New(store, perMinute, time.Minute)
	if now != nil {
		l = l.WithClock(now)
	}
	return l
}

func (k *Kernel) Handler() http.Handler { return k.Router.Handler() }

func (k *Kernel) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, k.db); err != nil {
		logger.WithCtx(ctx).Error("health check failed", "error", err)
		response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
