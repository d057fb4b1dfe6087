package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// Migration is one versioned schema step, loaded from NNN_name.sql
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator brings a dataset store up to the embedded observation schema
type Migrator struct {
	db  *sql.DB
	dir fs.FS
}

// NewMigrator creates a migrator using the embedded schema files
func NewMigrator(db *sql.DB) *Migrator {
	dir, err := fs.Sub(schemaFS, "migrations")
	if err != nil {
		panic(err)
	}
	return &Migrator{db: db, dir: dir}
}

// Up applies every pending migration in version order, each in its own
// transaction
func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	done, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	all, err := m.Migrations()
	if err != nil {
		return err
	}

	for _, mg := range all {
		if done[mg.Version] {
			continue
		}
		err := Transaction(ctx, m.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mg.SQL); err != nil {
				return fmt.Errorf("migration %s: %w", mg.Name, err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mg.Version, mg.Name)
			return err
		})
		if err != nil {
			return err
		}
		slog.Info("migration applied", "component", "database", "version", mg.Version, "name", mg.Name)
	}
	return nil
}

// Applied returns the recorded migration versions
func (m *Migrator) Applied(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	versions := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions[v] = true
	}
	return versions, rows.Err()
}

// Migrations lists the embedded schema files sorted by version
func (m *Migrator) Migrations() ([]Migration, error) {
	files, err := fs.Glob(m.dir, "*.sql")
	if err != nil {
		return nil, err
	}

	out := make([]Migration, 0, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".sql")
		prefix, _, ok := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil {
			return nil, fmt.Errorf("migration file %s: name must start with a version number", file)
		}
		body, err := fs.ReadFile(m.dir, file)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
