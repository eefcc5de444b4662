package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// Writer materializes remote query results into the lake, replacing the
// destination table wholesale on every run.
type Writer struct {
	lake   *Lake
	remote domain.RemoteExecutor
}

var _ domain.CacheWriter = (*Writer)(nil)

// NewWriter creates a Writer pulling from remote and writing into lake.
func NewWriter(lake *Lake, remote domain.RemoteExecutor) *Writer {
	return &Writer{lake: lake, remote: remote}
}

// Materialize runs sourceQuery remotely and replaces dest with its result.
// The destination table is rebuilt from the result's column set, so schema
// drift in the source query is absorbed on the next refresh.
func (w *Writer) Materialize(ctx context.Context, credentialRef, sourceQuery string, dest domain.TablePath) (int64, error) {
	rows, err := w.remote.QueryContext(ctx, credentialRef, sourceQuery)
	if err != nil {
		return 0, err
	}
	defer rows.Close() //nolint:errcheck

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return 0, domain.ErrRemoteQuery(err, "describe result columns: %v", err)
	}
	if len(colTypes) == 0 {
		return 0, domain.ErrRemoteQuery(nil, "source query produced no columns")
	}

	if err := w.lake.EnsureSchema(ctx, dest.Schema); err != nil {
		return 0, err
	}

	columns := make([]string, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = fmt.Sprintf(`"%s" %s`, strings.ReplaceAll(ct.Name(), `"`, `""`), duckDBType(ct))
	}
	createStmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", dest, strings.Join(columns, ", "))

	tx, err := w.lake.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.ErrStorage(err, "begin materialization of %s: %v", dest, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		return 0, domain.ErrStorage(err, "create cache table %s: %v", dest, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(colTypes)), ", ")
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", dest, placeholders))
	if err != nil {
		return 0, domain.ErrStorage(err, "prepare insert into %s: %v", dest, err)
	}
	defer insert.Close() //nolint:errcheck

	var count int64
	values := make([]any, len(colTypes))
	scanTargets := make([]any, len(colTypes))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return 0, domain.ErrRemoteQuery(err, "scan source row: %v", err)
		}
		args := make([]any, len(values))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				args[i] = string(b)
			} else {
				args[i] = v
			}
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return 0, domain.ErrStorage(err, "insert into cache table %s: %v", dest, err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, domain.ErrRemoteQuery(err, "read source rows: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.ErrStorage(err, "commit materialization of %s: %v", dest, err)
	}

	return count, nil
}

// duckDBType maps a driver-reported column type to the DuckDB column type the
// cache table is created with. Unknown types fall back to VARCHAR.
func duckDBType(ct *sql.ColumnType) string {
	switch strings.ToUpper(ct.DatabaseTypeName()) {
	case "FIXED", "NUMBER", "DECIMAL", "NUMERIC":
		if _, scale, ok := ct.DecimalSize(); ok && scale == 0 {
			return "BIGINT"
		}
		return "DOUBLE"
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT":
		return "BIGINT"
	case "REAL", "FLOAT", "DOUBLE":
		return "DOUBLE"
	case "BOOLEAN", "BOOL":
		return "BOOLEAN"
	case "DATE":
		return "DATE"
	case "TIME":
		return "TIME"
	case "TIMESTAMP", "DATETIME", "TIMESTAMP_NTZ", "TIMESTAMP_LTZ", "TIMESTAMP_TZ":
		return "TIMESTAMP"
	case "BINARY", "VARBINARY", "BLOB":
		return "BLOB"
	default:
		return "VARCHAR"
	}
}
