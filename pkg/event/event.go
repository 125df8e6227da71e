// Package event dispatches domain events to registered listeners.
//
//	events := event.NewDispatcher(pool)
//	events.Listen("purchase.completed", listeners.RecordSale)
//	events.FireAsync(ctx, "purchase.completed", purchase)
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/metrics"
	"github.com/shashiranjanraj/mithai/pkg/workerpool"
)

type Listener func(ctx context.Context, payload any)

type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	pool      *workerpool.Pool
}

// NewDispatcher returns a dispatcher running async listeners on pool. With a
// nil pool FireAsync behaves like Fire.
func NewDispatcher(pool *workerpool.Pool) *Dispatcher {
	return &Dispatcher{listeners: map[string][]Listener{}, pool: pool}
}

func (d *Dispatcher) Listen(name string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], l)
}

func (d *Dispatcher) HasListeners(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[name]) > 0
}

// Fire calls every listener of name in registration order and returns when
// they are done. A panicking listener is logged and skipped.
func (d *Dispatcher) Fire(ctx context.Context, name string, payload any) {
	metrics.EventsFired.WithLabelValues(name).Inc()
	for _, l := range d.snapshot(name) {
		call(ctx, name, l, payload)
	}
}

// FireAsync hands each listener to the worker pool and returns at once.
// Listeners get ctx without its cancellation so they outlive the request.
// When the pool is saturated or closed the listener runs inline.
func (d *Dispatcher) FireAsync(ctx context.Context, name string, payload any) {
	metrics.EventsFired.WithLabelValues(name).Inc()
	detached := context.WithoutCancel(ctx)

	for _, l := range d.snapshot(name) {
		if d.pool == nil {
			call(detached, name, l, payload)
			continue
		}
		l := l
		err := d.pool.Submit(detached, func(ctx context.Context) { call(ctx, name, l, payload) })
		if err != nil {
			if !errors.Is(err, workerpool.ErrPoolFull) {
				logger.WithCtx(ctx).Warn("event: pool unavailable, running inline", "event", name, "error", err)
			}
			call(detached, name, l, payload)
		}
	}
}

// Flush removes every listener.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = map[string][]Listener{}
}

func (d *Dispatcher) snapshot(name string) []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Listener(nil), d.listeners[name]...)
}

func call(ctx context.Context, name string, l Listener, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	l(ctx, payload)
}
