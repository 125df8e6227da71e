// Package app boots the shop from configuration: database, optional Redis,
// the event worker pool, the HTTP kernel and the maintenance scheduler.
//
//	a, err := app.Boot(ctx)
//	if err != nil { ... }
//	defer a.Close(context.Background())
//	return a.Serve(ctx)
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/config"
	"github.com/shashiranjanraj/mithai/internal/kernel"
	"github.com/shashiranjanraj/mithai/internal/server"
	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/cache"
	appctx "github.com/shashiranjanraj/mithai/pkg/ctx"
	"github.com/shashiranjanraj/mithai/pkg/database"
	"github.com/shashiranjanraj/mithai/pkg/event"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/ratelimit"
	"github.com/shashiranjanraj/mithai/pkg/schedule"
	"github.com/shashiranjanraj/mithai/pkg/workerpool"
)

type Application struct {
	DB *gorm.DB
	// Redis is nil when REDIS_ADDR is unset or unreachable.
	Redis     *redis.Client
	Pool      *workerpool.Pool
	Events    *event.Dispatcher
	Scheduler *schedule.Scheduler
	Kernel    *kernel.Kernel
}

// OpenDB loads the configuration and connects to the configured database.
func OpenDB(ctx context.Context) (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	return database.Connect(ctx, config.DatabaseDriver(), config.DatabaseDSN())
}

func Boot(ctx context.Context) (*Application, error) {
	db, err := OpenDB(ctx)
	if err != nil {
		return nil, err
	}
	return BootWith(ctx, db), nil
}

// BootWith wires the application around an already open database.
func BootWith(ctx context.Context, db *gorm.DB) *Application {
	a := &Application{DB: db}

	if addr := config.RedisAddr(); addr != "" {
		rdb, err := cache.Connect(ctx, addr, config.RedisPassword())
		if err != nil {
			logger.Warn("redis unavailable, using the database for rate limits", "addr", addr, "error", err)
		} else {
			a.Redis = rdb
		}
	}

	if err := appctx.TrustProxies(config.TrustedProxies()); err != nil {
		logger.Warn("ignoring TRUSTED_PROXIES, forwarding headers will not be trusted", "error", err)
	}

	a.Pool = workerpool.New(config.EventWorkers())
	a.Events = event.NewDispatcher(a.Pool)

	opts := kernel.Options{
		DB:                db,
		Events:            a.Events,
		Tokens:            auth.NewTokenManager(config.JWTSecret(), config.JWTTTL()),
		CacheTTL:          config.CacheTTL(),
		RateLimit:         config.RateLimitPerMinute(),
		AuthRateLimit:     config.AuthRateLimitPerMinute(),
		CORSOrigins:       config.CORSAllowedOrigins(),
		LowStockThreshold: config.LowStockThreshold(),
	}
	if a.Redis != nil {
		opts.Redis = a.Redis
	}
	a.Kernel = kernel.New(opts)
	a.Scheduler = a.jobs()
	return a
}

func (a *Application) jobs() *schedule.Scheduler {
	s := schedule.New()
	s.Hourly().Name("tokens:prune").WithoutOverlapping().Run(a.Kernel.Auth.PruneRevokedTokens)

	if p, ok := a.Kernel.RateStore.(ratelimit.Pruner); ok {
		s.Every(10 * time.Minute).Name("ratelimit:prune").WithoutOverlapping().Run(func(ctx context.Context) error {
			n, err := p.Prune(ctx, time.Now())
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("ratelimit: pruned expired windows", "rows", n)
			}
			return nil
		})
	}
	return s
}

// Serve runs the HTTP server and the scheduler until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Scheduler.Loop(ctx, time.Minute)
	}()

	err := server.Start(ctx, ":"+config.AppPort(), a.Kernel.Handler())
	<-done
	return err
}

// Close drains queued event listeners and releases the connections.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if err := a.Pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("worker pool: %w", err))
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := database.Close(a.DB); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
