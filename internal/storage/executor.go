package storage

import (
	"context"
	"database/sql"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// LocalExecutor runs rewritten queries against the lake's DuckDB connection.
type LocalExecutor struct {
	db *sql.DB
}

var _ domain.LocalExecutor = (*LocalExecutor)(nil)

// NewLocalExecutor creates a LocalExecutor backed by the given connection.
func NewLocalExecutor(db *sql.DB) *LocalExecutor {
	return &LocalExecutor{db: db}
}

// QueryContext executes the query against the local database.
func (e *LocalExecutor) QueryContext(ctx context.Context, query string) (*sql.Rows, error) {
	return e.db.QueryContext(ctx, query)
}
