package domain

import (
	"context"
	"database/sql"
)

// MetadataStore is the durable catalog of source definitions, cache
// definitions, and per-cache refresh state. It exclusively owns all three
// entity tables; no other component mutates them directly.
type MetadataStore interface {
	// CreateSource upserts a source definition (full replace on name clash).
	CreateSource(ctx context.Context, src *SourceDefinition) error
	GetSource(ctx context.Context, sourceName string) (*SourceDefinition, error)
	ListSources(ctx context.Context) ([]SourceDefinition, error)
	// DeleteSource cascades to the source's caches and their state rows.
	DeleteSource(ctx context.Context, sourceName string) error

	// CreateCache upserts a cache definition (full replace on name clash).
	CreateCache(ctx context.Context, cache *CacheDefinition) error
	GetCache(ctx context.Context, cacheName string) (*CacheDefinition, error)
	ListCaches(ctx context.Context) ([]CacheDefinition, error)
	DeleteCache(ctx context.Context, cacheName string) error

	// ResolveCacheName matches a table identifier against cache names,
	// case-insensitively. Returns nil when no cache matches.
	ResolveCacheName(ctx context.Context, ident string) (*CacheDefinition, error)
	// ResolveByMonitorTable matches a table identifier against every cache's
	// monitor_tables, case-insensitively. Returns nil when no cache matches.
	ResolveByMonitorTable(ctx context.Context, ident string) (*CacheDefinition, error)

	// InitializeState creates an empty state row if none exists; idempotent.
	InitializeState(ctx context.Context, cacheName string) error
	GetState(ctx context.Context, cacheName string) (*CacheState, error)
	// UpdateState replaces the state row, incrementing refresh_count.
	UpdateState(ctx context.Context, state *CacheState) error
	// UpdateStateIf replaces the state row only when the stored refresh_count
	// equals expectedRefreshCount. Returns false on a lost race.
	UpdateStateIf(ctx context.Context, expectedRefreshCount int64, state *CacheState) (bool, error)
}

// RemoteMetadataProbe returns last-modification metadata for a set of remote
// tables, keyed by fully-qualified table identifier.
type RemoteMetadataProbe interface {
	GetLastModified(ctx context.Context, credentialRef string, tableIdents []string) (map[string]string, error)
}

// CacheWriter executes a query against the remote warehouse and materializes
// its result into local physical storage under dest, replacing any previous
// contents. Returns the number of rows written.
type CacheWriter interface {
	Materialize(ctx context.Context, credentialRef, sourceQuery string, dest TablePath) (int64, error)
}

// LocalExecutor runs rewritten queries against the local store.
type LocalExecutor interface {
	QueryContext(ctx context.Context, query string) (*sql.Rows, error)
}

// RemoteExecutor runs passthrough queries against the remote warehouse.
type RemoteExecutor interface {
	QueryContext(ctx context.Context, credentialRef, query string) (*sql.Rows, error)
}
