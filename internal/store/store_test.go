package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schooldesk/internal/config"
	"schooldesk/internal/rowstore"
)

func TestOpenRows_Memory(t *testing.T) {
	rows, closeFn, err := OpenRows(context.Background(), config.App{StoreBackend: config.StoreMemory})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &rowstore.Memory{}, rows)
}

func TestOpenRows_SQLitePersists(t *testing.T) {
	ctx := context.Background()
	cfg := config.App{StoreBackend: config.StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "school.db")}

	rows, closeFn, err := OpenRows(ctx, cfg)
	require.NoError(t, err)
	sheet, err := rows.EnsureSheet(ctx, "Teachers")
	require.NoError(t, err)
	require.NoError(t, sheet.AppendRows(ctx, [][]any{{"id", "name"}, {1, "Sara"}}))
	require.NoError(t, closeFn())

	rows, closeFn, err = OpenRows(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()
	sheet, err = rows.Sheet(ctx, "Teachers")
	require.NoError(t, err)
	values, err := sheet.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"id", "name"}, {1.0, "Sara"}}, values)
}

func TestOpenRows_Unknown(t *testing.T) {
	_, closeFn, err := OpenRows(context.Background(), config.App{StoreBackend: "sheets"})
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

func TestOpenRows_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	rows, closeFn, err := OpenRows(context.Background(), config.App{StoreBackend: config.StorePostgres, DatabaseURL: dsn})
	require.NoError(t, err)
	defer closeFn()
	assert.NoError(t, rows.Ping(context.Background()))
}

func TestRedisHealthy_Nil(t *testing.T) {
	var r *Redis
	assert.False(t, r.Healthy(context.Background()))
	assert.NoError(t, r.Close())
}
