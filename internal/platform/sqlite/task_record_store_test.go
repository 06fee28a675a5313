package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/phrazzld/paperpilot/internal/platform/migrate"
	"github.com/phrazzld/paperpilot/internal/platform/sqlite"
	"github.com/phrazzld/paperpilot/internal/store"
	"github.com/phrazzld/paperpilot/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) store.TaskRecordStore {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "nested", "paperpilot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrate.Up(ctx, db, migrate.DialectSQLite, sqlite.Migrations()))
	return sqlite.NewTaskRecordStore(db)
}

func TestTaskRecordStore(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestMigrationsAreReversible(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "paperpilot.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, migrate.Up(ctx, db, migrate.DialectSQLite, sqlite.Migrations()))
	require.NoError(t, migrate.Run(ctx, db, migrate.DialectSQLite, sqlite.Migrations(), migrate.CommandDown))
	require.NoError(t, migrate.Up(ctx, db, migrate.DialectSQLite, sqlite.Migrations()))
	require.Error(t, migrate.Run(ctx, db, migrate.DialectSQLite, sqlite.Migrations(), "sideways"))
}
