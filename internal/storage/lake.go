// Package storage manages the local DuckDB store that cache tables are
// materialized into, addressed as {catalog}.{source_name}.{cache_name}.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// Lake wraps the DuckDB connection holding cached tables under one attached
// catalog.
type Lake struct {
	db      *sql.DB
	catalog string
	logger  *slog.Logger
}

// NewLake creates a Lake over an already-attached catalog.
func NewLake(db *sql.DB, catalog string, logger *slog.Logger) *Lake {
	return &Lake{db: db, catalog: catalog, logger: logger}
}

// Attach attaches the DuckDB database file at path as the named catalog.
func Attach(ctx context.Context, db *sql.DB, path, catalog string) error {
	_, err := db.ExecContext(ctx,
		fmt.Sprintf("ATTACH IF NOT EXISTS '%s' AS %s", path, domain.QuoteIdent(catalog)))
	if err != nil {
		return domain.ErrStorage(err, "attach local catalog %q: %v", catalog, err)
	}
	return nil
}

// AttachDuckLake installs the DuckLake extension and attaches a
// Postgres-cataloged lake as the named catalog. Used when snapshot retention
// and external data paths are wanted instead of a plain database file.
func AttachDuckLake(ctx context.Context, db *sql.DB, pgConn, dataPath, catalog string) error {
	for _, stmt := range []string{"INSTALL ducklake", "LOAD ducklake"} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return domain.ErrStorage(err, "load ducklake extension: %v", err)
		}
	}
	attach := fmt.Sprintf("ATTACH 'ducklake:postgres:%s' AS %s (DATA_PATH '%s')",
		pgConn, domain.QuoteIdent(catalog), dataPath)
	if _, err := db.ExecContext(ctx, attach); err != nil {
		return domain.ErrStorage(err, "attach ducklake catalog %q: %v", catalog, err)
	}
	return nil
}

// DB exposes the underlying connection for local query execution.
func (l *Lake) DB() *sql.DB { return l.db }

// Catalog returns the attached catalog name.
func (l *Lake) Catalog() string { return l.catalog }

// TablePath builds the destination path for a cache table.
func (l *Lake) TablePath(sourceName, cacheName string) domain.TablePath {
	return domain.TablePath{Catalog: l.catalog, Schema: sourceName, Table: cacheName}
}

// EnsureSchema creates the per-source schema if it does not exist.
func (l *Lake) EnsureSchema(ctx context.Context, sourceName string) error {
	stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s.%s",
		domain.QuoteIdent(l.catalog), domain.QuoteIdent(sourceName))
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return domain.ErrStorage(err, "create schema %s.%s: %v", l.catalog, sourceName, err)
	}
	return nil
}

// TableExists reports whether a cache table has been materialized.
func (l *Lake) TableExists(ctx context.Context, sourceName, cacheName string) (bool, error) {
	var count int64
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_catalog = ? AND table_schema = ? AND table_name = ?`,
		l.catalog, sourceName, cacheName).Scan(&count)
	if err != nil {
		return false, domain.ErrStorage(err, "check table %s.%s.%s: %v", l.catalog, sourceName, cacheName, err)
	}
	return count > 0, nil
}
