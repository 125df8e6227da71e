// Package workerpool provides a bounded goroutine pool with backpressure.
//
// When every worker is busy and the queue is full, Submit returns
// ErrPoolFull immediately so the caller decides whether to run inline, retry
// or drop.
//
//	pool := workerpool.New(4)
//	defer pool.Shutdown(ctx)
//
//	err := pool.Submit(ctx, func(ctx context.Context) { notify(ctx) })
//	if errors.Is(err, workerpool.ErrPoolFull) {
//	    notify(ctx)
//	}
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/shashiranjanraj/mithai/pkg/logger"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

type Task func(ctx context.Context)

type job struct {
	ctx  context.Context
	task Task
}

type Pool struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
	done   chan struct{}
}

// New starts size workers with a queue of twice that many slots.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		jobs: make(chan job, size*2),
		done: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues task without blocking. The task receives ctx; callers that
// outlive a request should pass context.WithoutCancel.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job{ctx: ctx, task: task}:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until a slot frees up or ctx is done.
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job{ctx: ctx, task: task}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish, or for
// ctx to expire. Safe to call more than once.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
		go func() {
			p.wg.Wait()
			close(p.done)
		}()
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("workerpool: shutdown: %w", ctx.Err())
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		safeRun(j)
	}
}

func safeRun(j job) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(j.ctx).Error("workerpool: task panicked",
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	j.task(j.ctx)
}
