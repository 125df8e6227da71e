package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/metrics"
)

// Logger routes gorm's output through slog. Every statement is timed into
// metrics.DBQueryDuration; statements slower than slow are logged at WARN.
type Logger struct {
	log   *slog.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func NewLogger(log *slog.Logger, slow time.Duration) *Logger {
	return &Logger{log: log, level: gormlogger.Warn, slow: slow}
}

func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *Logger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.from(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *Logger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.from(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *Logger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.from(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	metrics.DBQueryDuration.WithLabelValues(operation(sql)).Observe(elapsed.Seconds())

	if l.level <= gormlogger.Silent {
		return
	}

	log := l.from(ctx)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Error("query failed", "sql", sql, "rows", rows, "duration", elapsed.String(), "error", err)
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		log.Warn("slow query", "sql", sql, "rows", rows, "duration", elapsed.String())
	case l.level >= gormlogger.Info:
		log.Debug("query", "sql", sql, "rows", rows, "duration", elapsed.String())
	}
}

func (l *Logger) from(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log := logger.WithCtx(ctx); log != logger.L {
			return log
		}
	}
	return l.log
}

func operation(sql string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	switch v := strings.ToLower(verb); v {
	case "select", "insert", "update", "delete":
		return v
	default:
		return "other"
	}
}
