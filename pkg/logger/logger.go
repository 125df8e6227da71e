// Package logger provides the structured, levelled logger built on log/slog.
//
// WithCtx returns the per-request logger injected by the HTTP logger
// middleware, so every line written while serving a request carries its
// request_id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("purchase recorded", "purchase_id", p.ID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/mithai/config"
)

var L *slog.Logger

func init() {
	L = New(os.Stdout, config.AppEnv(), config.LogLevel())
	slog.SetDefault(L)
}

// New builds a logger for env. Production gets JSON lines for log
// aggregators; everything else gets the human-readable text handler.
func New(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(env, level)}

	switch env {
	case "production", "prod":
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

func parseLevel(env, level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "production" || env == "prod" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

type ctxKey struct{}

// WithCtx returns the logger stored in ctx by InjectLogger, or the base
// logger when there is none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx. Called by the logger middleware.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }

func Info(msg string, args ...any) { L.Info(msg, args...) }

func Warn(msg string, args ...any) { L.Warn(msg, args...) }

func Error(msg string, args ...any) { L.Error(msg, args...) }
