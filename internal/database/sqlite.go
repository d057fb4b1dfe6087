package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds database configuration
type Config struct {
	Path         string
	ReadOnly     bool
	MaxOpenConns int
	BusyTimeout  time.Duration
}

// DSN builds a modernc sqlite URI for the config
func (c Config) DSN() string {
	q := url.Values{}
	if c.ReadOnly {
		q.Set("mode", "ro")
	}
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	if !c.ReadOnly {
		q.Add("_pragma", "foreign_keys(1)")
	}
	return "file:" + c.Path + "?" + q.Encode()
}

// Open opens a sqlite database and verifies the connection
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns((maxOpen + 1) / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Path, err)
	}

	return db, nil
}

// Registry holds one read-only pool per observation dataset
type Registry struct {
	mu  sync.RWMutex
	dbs map[string]*sql.DB
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{dbs: make(map[string]*sql.DB)}
}

// OpenDatasets opens every dataset path read-only. A store that cannot be
// opened is logged and left out; it is an error only when none open.
func OpenDatasets(paths map[string]string, maxOpenConns int) (*Registry, error) {
	r := NewRegistry()
	var failed []error
	for name, path := range paths {
		db, err := Open(Config{Path: path, ReadOnly: true, MaxOpenConns: maxOpenConns})
		if err != nil {
			slog.Warn("dataset unavailable, not serving it", "component", "database", "dataset", name, "path", path, "error", err)
			failed = append(failed, fmt.Errorf("dataset %s: %w", name, err))
			continue
		}
		r.Register(name, db)
		slog.Info("dataset opened", "component", "database", "dataset", name, "path", path)
	}
	if len(r.dbs) == 0 && len(paths) > 0 {
		return nil, errors.Join(failed...)
	}
	return r, nil
}

// Register adds or replaces a dataset pool
func (r *Registry) Register(name string, db *sql.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dbs[name] = db
}

// Get returns the pool for a dataset
func (r *Registry) Get(name string) (*sql.DB, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	db, ok := r.dbs[name]
	return db, ok
}

// Names returns the registered dataset names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.dbs))
	for name := range r.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every pool
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for name, db := range r.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close dataset %s: %w", name, err)
		}
		delete(r.dbs, name)
	}
	return firstErr
}

// Transaction runs fn inside a transaction bound to ctx, rolling back on
// error or panic
func Transaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
