// Package schedule runs periodic maintenance jobs.
//
//	sched := schedule.New()
//	sched.Every(time.Hour).Name("tokens:prune").WithoutOverlapping().Run(pruneTokens)
//	sched.Cron("*/5 * * * *").Name("ratelimit:prune").Run(pruneWindows)
//
//	go sched.Loop(ctx, time.Second) // serve
//	sched.RunAll(ctx)               // sweetshop schedule:run
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/mithai/pkg/logger"
)

type Job func(ctx context.Context) error

type entry struct {
	name      string
	interval  time.Duration
	cronExpr  string
	job       Job
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

func New() *Scheduler { return &Scheduler{} }

// Schedule configures one entry before Run registers it.
type Schedule struct {
	s *Scheduler
	e *entry
}

func (s *Scheduler) Every(d time.Duration) *Schedule {
	return &Schedule{s: s, e: &entry{interval: d}}
}

func (s *Scheduler) Hourly() *Schedule { return s.Every(time.Hour) }

func (s *Scheduler) Daily() *Schedule { return s.Every(24 * time.Hour) }

// Cron schedules on a 5-field expression (min hour dom mon dow). Each field
// is *, N, */N or A-B.
func (s *Scheduler) Cron(expr string) *Schedule {
	return &Schedule{s: s, e: &entry{cronExpr: expr}}
}

func (sc *Schedule) Name(name string) *Schedule {
	sc.e.name = name
	return sc
}

// WithoutOverlapping skips a run while the previous one is still going.
func (sc *Schedule) WithoutOverlapping() *Schedule {
	sc.e.noOverlap = true
	return sc
}

func (sc *Schedule) Run(job Job) {
	sc.e.job = job
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	if sc.e.name == "" {
		sc.e.name = fmt.Sprintf("job-%d", len(sc.s.entries)+1)
	}
	sc.s.entries = append(sc.s.entries, sc.e)
}

func (s *Scheduler) snapshot() []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entry(nil), s.entries...)
}

// RunDue starts every entry due at now and returns how many were started.
// Jobs run in their own goroutines; Wait blocks until they finish.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) int {
	started := 0
	for _, e := range s.snapshot() {
		if !e.due(now) {
			continue
		}
		if s.dispatch(ctx, e, now) {
			started++
		}
	}
	return started
}

// RunAll runs every job once, synchronously, and joins their errors.
func (s *Scheduler) RunAll(ctx context.Context) error {
	var errs []error
	for _, e := range s.snapshot() {
		if err := execute(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

// Loop checks for due jobs every tick until ctx is cancelled, then waits for
// running jobs.
func (s *Scheduler) Loop(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	logger.Info("schedule: started", "jobs", len(s.snapshot()))

	for {
		select {
		case <-ctx.Done():
			s.Wait()
			logger.Info("schedule: stopped")
			return
		case now := <-ticker.C:
			s.RunDue(ctx, now)
		}
	}
}

func (s *Scheduler) Wait() { s.wg.Wait() }

// List describes the registered jobs for the CLI.
func (s *Scheduler) List() []string {
	out := []string{}
	for _, e := range s.snapshot() {
		freq := e.cronExpr
		if freq == "" {
			freq = "every " + e.interval.String()
		}
		out = append(out, fmt.Sprintf("%s  [%s]", e.name, freq))
	}
	return out
}

func (e *entry) due(now time.Time) bool {
	if e.cronExpr != "" {
		e.mu.Lock()
		sameMinute := !e.lastRun.IsZero() && e.lastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute))
		e.mu.Unlock()
		return !sameMinute && matchCron(e.cronExpr, now)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) bool {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping run", "job", e.name)
		return false
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}()
		if err := execute(ctx, e); err != nil {
			logger.Error("schedule: job failed", "job", e.name, "error", err)
		}
	}()
	return true
}

func execute(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	start := time.Now()
	err = e.job(ctx)
	logger.Debug("schedule: job finished", "job", e.name, "duration", time.Since(start).String())
	return err
}

func matchCron(expr string, t time.Time) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	values := []int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, f := range fields {
		if !matchField(f, values[i]) {
			return false
		}
	}
	return true
}

func matchField(field string, val int) bool {
	if field == "*" {
		return true
	}
	if step, ok := strings.CutPrefix(field, "*/"); ok {
		n, err := strconv.Atoi(step)
		return err == nil && n > 0 && val%n == 0
	}
	if lo, hi, ok := strings.Cut(field, "-"); ok {
		a, err1 := strconv.Atoi(lo)
		b, err2 := strconv.Atoi(hi)
		return err1 == nil && err2 == nil && val >= a && val <= b
	}
	n, err := strconv.Atoi(field)
	return err == nil && n == val
}
