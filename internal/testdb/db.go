package testdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/paperpilot/internal/platform/migrate"
	"github.com/phrazzld/paperpilot/internal/platform/sqlite"
	"github.com/phrazzld/paperpilot/internal/store"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds fixture setup.
const TestTimeout = 10 * time.Second

// OpenSQLite opens a fresh, fully migrated SQLite database under t.TempDir.
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "paperpilot.db"))
	require.NoError(t, err, "open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrate.Up(ctx, db, migrate.DialectSQLite, sqlite.Migrations()), "migrate test database")
	return db
}

// NewTaskRecordStore returns a durable task record store over a fresh
// SQLite database.
func NewTaskRecordStore(t *testing.T) store.TaskRecordStore {
	t.Helper()
	return sqlite.NewTaskRecordStore(OpenSQLite(t))
}
