// Package ratelimit counts requests per subject in fixed windows held in an
// external store, so every process behind a load balancer shares the same
// counters.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Store increments the counter for key and returns the new value. The
// counter must expire no earlier than the end of window.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Pruner is implemented by stores that need expired windows removed.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window, now: time.Now}
}

// WithClock returns a copy reading time from now.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	cp := *l
	cp.now = now
	return &cp
}

func (l *Limiter) Limit() int { return l.limit }

// Allow records one hit for subject in the current window.
func (l *Limiter) Allow(ctx context.Context, subject string) (Result, error) {
	now := l.now()
	index := now.UnixNano() / int64(l.window)
	reset := time.Unix(0, (index+1)*int64(l.window))

	n, err := l.store.Hit(ctx, Key(subject, index), l.window)
	if err != nil {
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: reset}, err
	}

	remaining := l.limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   n <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   reset,
	}, nil
}

// Key is the store key for a subject in window number index.
func Key(subject string, index int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", subject, index)
}
