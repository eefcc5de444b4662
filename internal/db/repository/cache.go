package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// CreateCache upserts a cache definition. The referenced source must already
// be registered. Replacing an existing definition drops its state row via
// cascade; the caller re-initializes state afterwards.
func (m *Metastore) CreateCache(ctx context.Context, cache *domain.CacheDefinition) error {
	if err := cache.Validate(); err != nil {
		return err
	}

	if _, err := m.GetSource(ctx, cache.SourceName); err != nil {
		return err
	}

	tables, err := encodeMonitorTables(cache.MonitorTables)
	if err != nil {
		return err
	}

	if cache.CreatedAt.IsZero() {
		cache.CreatedAt = time.Now().UTC()
	}

	var ttl sql.NullInt64
	if cache.TTLSeconds != nil {
		ttl = sql.NullInt64{Int64: *cache.TTLSeconds, Valid: true}
	}

	return m.inTx(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM caches WHERE cache_name = ?`, cache.CacheName); err != nil {
			return domain.ErrStorage(err, "delete cache %q: %v", cache.CacheName, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO caches (cache_name, source_name, source_query, monitor_tables, ttl_seconds, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			cache.CacheName, cache.SourceName, cache.SourceQuery, tables, ttl, cache.CreatedAt); err != nil {
			return domain.ErrStorage(err, "insert cache %q: %v", cache.CacheName, err)
		}
		return nil
	})
}

func scanCache(row interface{ Scan(...any) error }) (*domain.CacheDefinition, error) {
	var (
		cache  domain.CacheDefinition
		tables string
		ttl    sql.NullInt64
	)
	if err := row.Scan(&cache.CacheName, &cache.SourceName, &cache.SourceQuery, &tables, &ttl, &cache.CreatedAt); err != nil {
		return nil, err
	}
	decoded, err := decodeMonitorTables(tables)
	if err != nil {
		return nil, err
	}
	cache.MonitorTables = decoded
	if ttl.Valid {
		cache.TTLSeconds = &ttl.Int64
	}
	return &cache, nil
}

const cacheColumns = `cache_name, source_name, source_query, monitor_tables, ttl_seconds, created_at`

// GetCache loads a cache definition by exact name.
func (m *Metastore) GetCache(ctx context.Context, cacheName string) (*domain.CacheDefinition, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+cacheColumns+` FROM caches WHERE cache_name = ?`, cacheName)

	cache, err := scanCache(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("cache %q not found", cacheName)
	}
	if err != nil {
		if _, ok := err.(*domain.StorageError); ok {
			return nil, err
		}
		return nil, domain.ErrStorage(err, "load cache %q: %v", cacheName, err)
	}
	return cache, nil
}

// ListCaches returns all cache definitions ordered by name.
func (m *Metastore) ListCaches(ctx context.Context) ([]domain.CacheDefinition, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+cacheColumns+` FROM caches ORDER BY cache_name`)
	if err != nil {
		return nil, domain.ErrStorage(err, "list caches: %v", err)
	}
	defer rows.Close() //nolint:errcheck

	var caches []domain.CacheDefinition
	for rows.Next() {
		cache, err := scanCache(rows)
		if err != nil {
			return nil, domain.ErrStorage(err, "scan cache row: %v", err)
		}
		caches = append(caches, *cache)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrStorage(err, "list caches: %v", err)
	}
	return caches, nil
}

// DeleteCache removes a cache definition and, via cascade, its state row.
func (m *Metastore) DeleteCache(ctx context.Context, cacheName string) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM caches WHERE cache_name = ?`, cacheName)
	if err != nil {
		return domain.ErrStorage(err, "delete cache %q: %v", cacheName, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("cache %q not found", cacheName)
	}
	return nil
}

// ResolveCacheName matches a table identifier against cache names
// case-insensitively. Returns nil when no cache matches.
func (m *Metastore) ResolveCacheName(ctx context.Context, ident string) (*domain.CacheDefinition, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+cacheColumns+` FROM caches WHERE UPPER(cache_name) = UPPER(?)`, ident)

	cache, err := scanCache(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ErrStorage(err, "resolve cache name %q: %v", ident, err)
	}
	return cache, nil
}

// ResolveByMonitorTable scans all cache definitions for one whose
// monitor_tables contains ident, compared case-insensitively. Returns nil
// when no cache matches.
func (m *Metastore) ResolveByMonitorTable(ctx context.Context, ident string) (*domain.CacheDefinition, error) {
	caches, err := m.ListCaches(ctx)
	if err != nil {
		return nil, err
	}
	for i := range caches {
		for _, monitored := range caches[i].MonitorTables {
			if strings.EqualFold(monitored, ident) {
				return &caches[i], nil
			}
		}
	}
	return nil, nil
}
