// Package dbtest opens migrated throwaway databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/resquick/portal/internal/db"
)

// Connection returns a SQLite connection string inside dir.
func Connection(dir string) string {
	return filepath.Join(dir, "resquick.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// New returns a SQLite database in t.TempDir() with all migrations applied.
func New(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.Open(t.Context(), "sqlite", Connection(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })

	require.NoError(t, db.Migrate(t.Context(), conn.DB, "sqlite"))
	return conn
}
