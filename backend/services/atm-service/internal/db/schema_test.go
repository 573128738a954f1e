package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	libdb "smartatm/backend/libs/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	sqlDB, err := libdb.NewSQLiteDB(filepath.Join(t.TempDir(), "atm.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, sqlDB))
	require.NoError(t, Migrate(ctx, sqlDB))

	var n int
	require.NoError(t, sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n))
	require.Zero(t, n)
	require.NoError(t, sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM atm_transactions`).Scan(&n))
	require.Zero(t, n)
}
