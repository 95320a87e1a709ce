package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// schema locates a driver's migrations. SQLite and PostgreSQL differ in
// identity columns and timestamp types, so each has its own directory.
type schema struct {
	dialect goose.Dialect
	dir     string
}

var schemas = map[string]schema{
	"sqlite": {dialect: goose.DialectSQLite3, dir: "migrations/sqlite"},
	"pgx":    {dialect: goose.DialectPostgres, dir: "migrations/postgres"},
}

// Migrator applies the embedded portal schema to one database.
type Migrator struct {
	driver   string
	provider *goose.Provider
}

// MigrationState is one migration as reported by Status.
type MigrationState struct {
	Version int64
	File    string
	Applied bool
}

func NewMigrator(conn *sql.DB, driver string) (*Migrator, error) {
	s, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}

	fsys, err := fs.Sub(migrationsFS, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s migrations: %w", driver, err)
	}

	provider, err := goose.NewProvider(s.dialect, conn, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s migrations: %w", driver, err)
	}

	return &Migrator{driver: driver, provider: provider}, nil
}

// Up applies every pending migration. Nothing pending is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, r := range results {
		slog.Info("migration applied", "driver", m.driver, "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if errors.Is(err, goose.ErrNoNextVersion) {
		return errors.New("no applied migrations to roll back")
	}
	if err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	slog.Info("migration rolled back", "driver", m.driver, "version", r.Source.Version)
	return nil
}

func (m *Migrator) Status(ctx context.Context) ([]MigrationState, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	states := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		states = append(states, MigrationState{
			Version: s.Source.Version,
			File:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return states, nil
}

// Migrate brings conn up to the latest schema for driver.
func Migrate(ctx context.Context, conn *sql.DB, driver string) error {
	m, err := NewMigrator(conn, driver)
	if err != nil {
		return err
	}
	return m.Up(ctx)
}
