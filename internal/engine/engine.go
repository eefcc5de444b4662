// Package engine is the per-request facade tying routing, local execution,
// and remote passthrough together.
package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/danjsiegel/ducksync/internal/domain"
	"github.com/danjsiegel/ducksync/internal/router"
)

// QueryRouter decides how a query is executed.
type QueryRouter interface {
	Route(ctx context.Context, queryText, sourceName string) (router.RouteResult, error)
}

// QueryResult holds the structured output of a routed query.
type QueryResult struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	RowCount  int             `json:"row_count"`
	UsedCache bool            `json:"used_cache"`
	Caches    []string        `json:"caches,omitempty"`
}

// CacheEngine executes queries through the router: rewritten queries run on
// the local store, everything else passes through to the remote warehouse.
// One engine serves one process; all per-request state lives in the call.
type CacheEngine struct {
	router QueryRouter
	store  domain.MetadataStore
	local  domain.LocalExecutor
	remote domain.RemoteExecutor
	logger *slog.Logger
}

// NewCacheEngine creates a fully-wired engine.
func NewCacheEngine(r QueryRouter, store domain.MetadataStore, local domain.LocalExecutor,
	remote domain.RemoteExecutor, logger *slog.Logger) *CacheEngine {
	return &CacheEngine{router: r, store: store, local: local, remote: remote, logger: logger}
}

// Execute routes and runs sqlText on behalf of sourceName.
//
// Passthrough requires the source to have passthrough enabled; a query that
// neither resolves to caches nor may pass through fails with a
// ConfigurationError rather than silently burning remote compute.
func (e *CacheEngine) Execute(ctx context.Context, sourceName, sqlText string) (*QueryResult, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, domain.ErrValidation("sql query is required")
	}

	routed, err := e.router.Route(ctx, sqlText, sourceName)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if routed.UsedCache {
		e.logger.Debug("executing locally", "source", sourceName, "caches", routed.CacheNames)
		rows, err = e.local.QueryContext(ctx, routed.Query)
		if err != nil {
			return nil, domain.ErrStorage(err, "local execution failed: %v", err)
		}
	} else {
		source, srcErr := e.store.GetSource(ctx, sourceName)
		if srcErr != nil {
			return nil, srcErr
		}
		if !source.PassthroughEnabled {
			return nil, domain.ErrConfiguration(
				"query could not be served from cache and passthrough is disabled for source %q", sourceName)
		}
		e.logger.Debug("executing passthrough", "source", sourceName)
		rows, err = e.remote.QueryContext(ctx, source.CredentialRef, routed.Query)
		if err != nil {
			return nil, err
		}
	}
	defer rows.Close() //nolint:errcheck

	result, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	result.UsedCache = routed.UsedCache
	result.Caches = routed.CacheNames
	return result, nil
}

// scanRows drains a *sql.Rows into a QueryResult.
func scanRows(rows *sql.Rows) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, domain.ErrStorage(err, "read result columns: %v", err)
	}

	result := &QueryResult{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		targets := make([]interface{}, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, domain.ErrStorage(err, "scan result row: %v", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrStorage(err, "read result rows: %v", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
