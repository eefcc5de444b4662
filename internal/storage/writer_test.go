package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// localRemote satisfies domain.RemoteExecutor from the test's own DuckDB
// connection, standing in for a warehouse.
type localRemote struct {
	db *sql.DB
}

func (r *localRemote) QueryContext(ctx context.Context, _ string, query string) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query)
}

func setupLake(t *testing.T) *Lake {
	t.Helper()
	ctx := context.Background()

	conn, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	path := filepath.Join(t.TempDir(), "lake.db")
	require.NoError(t, Attach(ctx, conn, path, "ducksync"))

	return NewLake(conn, "ducksync", slog.New(slog.DiscardHandler))
}

func TestMaterialize_CreatesAndFillsTable(t *testing.T) {
	lake := setupLake(t)
	ctx := context.Background()
	writer := NewWriter(lake, &localRemote{db: lake.DB()})

	dest := lake.TablePath("sales", "daily_orders")
	rows, err := writer.Materialize(ctx, "sales_cred",
		"SELECT * FROM (VALUES (1::BIGINT, 'one'), (2::BIGINT, 'two')) t(id, label)", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	exists, err := lake.TableExists(ctx, "sales", "daily_orders")
	require.NoError(t, err)
	assert.True(t, exists)

	var label string
	err = lake.DB().QueryRowContext(ctx,
		"SELECT label FROM ducksync.sales.daily_orders WHERE id = 2").Scan(&label)
	require.NoError(t, err)
	assert.Equal(t, "two", label)
}

func TestMaterialize_ReplacesPreviousContents(t *testing.T) {
	lake := setupLake(t)
	ctx := context.Background()
	writer := NewWriter(lake, &localRemote{db: lake.DB()})
	dest := lake.TablePath("sales", "daily_orders")

	_, err := writer.Materialize(ctx, "sales_cred",
		"SELECT * FROM (VALUES (1::BIGINT), (2::BIGINT), (3::BIGINT)) t(id)", dest)
	require.NoError(t, err)

	rows, err := writer.Materialize(ctx, "sales_cred",
		"SELECT * FROM (VALUES (9::BIGINT)) t(id)", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	var count int64
	err = lake.DB().QueryRowContext(ctx,
		"SELECT count(*) FROM ducksync.sales.daily_orders").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMaterialize_RemoteFailure(t *testing.T) {
	lake := setupLake(t)
	ctx := context.Background()
	writer := NewWriter(lake, &localRemote{db: lake.DB()})

	_, err := writer.Materialize(ctx, "sales_cred", "SELECT * FROM no_such_table",
		lake.TablePath("sales", "daily_orders"))
	require.Error(t, err)

	exists, checkErr := lake.TableExists(ctx, "sales", "daily_orders")
	require.NoError(t, checkErr)
	assert.False(t, exists)
}

func TestDuckDBType(t *testing.T) {
	lake := setupLake(t)
	ctx := context.Background()

	rows, err := lake.DB().QueryContext(ctx,
		"SELECT 1::BIGINT AS n, 'x' AS s, true AS b, DATE '2024-01-01' AS d, 1.5::DOUBLE AS f")
	require.NoError(t, err)
	defer rows.Close() //nolint:errcheck

	colTypes, err := rows.ColumnTypes()
	require.NoError(t, err)

	want := []string{"BIGINT", "VARCHAR", "BOOLEAN", "DATE", "DOUBLE"}
	require.Len(t, colTypes, len(want))
	for i, ct := range colTypes {
		assert.Equal(t, want[i], duckDBType(ct), ct.Name())
	}
}

func TestCleanup_BestEffortOnPlainCatalog(t *testing.T) {
	lake := setupLake(t)
	cleaner := NewCleaner(lake, slog.New(slog.DiscardHandler))

	// Plain DuckDB catalogs have no ducklake procedures; cleanup reports zeros
	// instead of failing.
	result := cleaner.CleanupAll(context.Background())
	assert.Zero(t, result.SnapshotsExpired)
	assert.Zero(t, result.FilesCleaned)
	assert.Zero(t, result.OrphansDeleted)
	assert.Contains(t, result.Message, "cleanup completed")
}
