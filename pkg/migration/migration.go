// Package migration runs and tracks schema migrations.
//
// Migrations register themselves from init():
//
//	func init() {
//	    migration.Register("20260301000000_create_sweets_table", migration.Func{
//	        UpFn:   func(db *gorm.DB) error { return db.AutoMigrate(&models.Sweet{}) },
//	        DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable(&models.Sweet{}) },
//	    })
//	}
//
//	sweetshop migrate            // run all pending
//	sweetshop migrate:rollback   // roll back the last batch
//	sweetshop migrate:status
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/pkg/logger"
)

type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// Func adapts two functions to Migration.
type Func struct {
	UpFn   func(db *gorm.DB) error
	DownFn func(db *gorm.DB) error
}

func (f Func) Up(db *gorm.DB) error { return f.UpFn(db) }

func (f Func) Down(db *gorm.DB) error {
	if f.DownFn == nil {
		return nil
	}
	return f.DownFn(db)
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "schema_migrations" }

// Entry is a named migration. Names start with a sortable timestamp.
type Entry struct {
	Name      string
	Migration Migration
}

var (
	mu       sync.Mutex
	registry []Entry
)

func Register(name string, m Migration) {
	mu.Lock()
	defer mu.Unlock()
	registry = append(registry, Entry{Name: name, Migration: m})
}

// Registered returns every registered migration ordered by name.
func Registered() []Entry {
	mu.Lock()
	out := append([]Entry(nil), registry...)
	mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type Runner struct {
	db      *gorm.DB
	out     io.Writer
	entries []Entry
}

// New returns a runner over the registered migrations that reports progress
// to out.
func New(db *gorm.DB, out io.Writer) *Runner {
	return &Runner{db: db, out: out, entries: Registered()}
}

// WithEntries replaces the migration set. Used by tests.
func (r *Runner) WithEntries(entries []Entry) *Runner {
	cp := *r
	cp.entries = append([]Entry(nil), entries...)
	sort.Slice(cp.entries, func(i, j int) bool { return cp.entries[i].Name < cp.entries[j].Name })
	return &cp
}

func (r *Runner) ensureTable(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&record{})
}

func (r *Runner) ran(ctx context.Context) (map[string]record, error) {
	var rows []record
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]record, len(rows))
	for _, rec := range rows {
		out[rec.Name] = rec
	}
	return out, nil
}

// Pending lists migrations that have not run yet, in order.
func (r *Runner) Pending(ctx context.Context) ([]Entry, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("migration: ensure table: %w", err)
	}
	ran, err := r.ran(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration: read history: %w", err)
	}

	var pending []Entry
	for _, e := range r.entries {
		if _, ok := ran[e.Name]; !ok {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// Run applies every pending migration as one batch.
func (r *Runner) Run(ctx context.Context) error {
	pending, err := r.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil
	}

	db := r.db.WithContext(ctx)
	batch, err := r.lastBatch(ctx)
	if err != nil {
		return err
	}
	batch++

	for _, e := range pending {
		fmt.Fprintf(r.out, "Migrating: %s\n", e.Name)
		if err := e.Migration.Up(db); err != nil {
			return fmt.Errorf("migration: %s up: %w", e.Name, err)
		}
		if err := db.Create(&record{Name: e.Name, Batch: batch}).Error; err != nil {
			return fmt.Errorf("migration: record %s: %w", e.Name, err)
		}
		fmt.Fprintf(r.out, "Migrated:  %s\n", e.Name)
	}

	logger.Info("migrations applied", "count", len(pending), "batch", batch)
	return nil
}

// Rollback reverts the most recent batch, newest first.
func (r *Runner) Rollback(ctx context.Context) error {
	if err := r.ensureTable(ctx); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	batch, err := r.lastBatch(ctx)
	if err != nil {
		return err
	}
	if batch == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return nil
	}

	db := r.db.WithContext(ctx)
	var records []record
	if err := db.Where("batch = ?", batch).Order("id desc").Find(&records).Error; err != nil {
		return err
	}

	known := make(map[string]Migration, len(r.entries))
	for _, e := range r.entries {
		known[e.Name] = e.Migration
	}

	for _, rec := range records {
		m, ok := known[rec.Name]
		if !ok {
			return fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}
		fmt.Fprintf(r.out, "Rolling back: %s\n", rec.Name)
		if err := m.Down(db); err != nil {
			return fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := db.Delete(&rec).Error; err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Rolled back:  %s\n", rec.Name)
	}

	logger.Info("migrations rolled back", "count", len(records), "batch", batch)
	return nil
}

// Status prints every migration with its batch, or Pending.
func (r *Runner) Status(ctx context.Context) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	ran, err := r.ran(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MIGRATION\tSTATUS\tBATCH")
	for _, e := range r.entries {
		if rec, ok := ran[e.Name]; ok {
			fmt.Fprintf(tw, "%s\tRan\t%d\n", e.Name, rec.Batch)
		} else {
			fmt.Fprintf(tw, "%s\tPending\t-\n", e.Name)
		}
	}
	return tw.Flush()
}

func (r *Runner) lastBatch(ctx context.Context) (int, error) {
	var max sql.NullInt64
	err := r.db.WithContext(ctx).Model(&record{}).Select("MAX(batch)").Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("migration: read batch: %w", err)
	}
	return int(max.Int64), nil
}
