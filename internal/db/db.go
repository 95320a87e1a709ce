package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// pool sizes the connection pool for one driver.
type pool struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

var pools = map[string]pool{
	// SQLite allows one writer at a time
	"sqlite": {maxOpen: 4, maxIdle: 4, maxLifetime: 0},
	"pgx":    {maxOpen: 25, maxIdle: 5, maxLifetime: 5 * time.Minute},
}

// Open connects to the portal database and verifies it answers. For SQLite
// the directory holding the database file is created first.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	p, ok := pools[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == "sqlite" {
		err := ensureDataDir(dsn)
		if err != nil {
			return nil, err
		}
	}

	conn, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	conn.SetMaxOpenConns(p.maxOpen)
	conn.SetMaxIdleConns(p.maxIdle)
	conn.SetConnMaxLifetime(p.maxLifetime)

	slog.Info("database connected", "driver", driver, "max_open", p.maxOpen)
	return conn, nil
}

// ensureDataDir creates the parent directory of a SQLite file DSN.
func ensureDataDir(dsn string) error {
	file, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if file == "" || file == ":memory:" {
		return nil
	}

	err := os.MkdirAll(filepath.Dir(file), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Ping checks the connection within ctx. Used by the health endpoint.
func Ping(ctx context.Context, conn *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return conn.PingContext(ctx)
}

func Close(conn *sqlx.DB) error {
	if conn == nil {
		return nil
	}
	return conn.Close()
}
