// Package router decides, per incoming query, whether to serve from local
// cached storage or pass through to the remote warehouse, and rewrites table
// references accordingly.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// CacheResolver is the metadata lookup surface the router needs.
type CacheResolver interface {
	ResolveCacheName(ctx context.Context, ident string) (*domain.CacheDefinition, error)
	ResolveByMonitorTable(ctx context.Context, ident string) (*domain.CacheDefinition, error)
}

// RefreshRunner checks staleness and refreshes a cache when needed.
type RefreshRunner interface {
	Refresh(ctx context.Context, cacheName string, force bool) domain.RefreshStatus
}

// RouteResult is the routing outcome: the query text to execute and whether
// it targets local cache tables.
type RouteResult struct {
	Query      string
	UsedCache  bool
	CacheNames []string
}

// Router parses incoming queries, resolves referenced tables against the
// metadata store, refreshes stale caches inline, and rewrites resolvable
// queries to local cache tables.
type Router struct {
	resolver     CacheResolver
	refresher    RefreshRunner
	localCatalog string
	logger       *slog.Logger
}

// NewRouter creates a Router. localCatalog is the catalog cache tables live in.
func NewRouter(resolver CacheResolver, refresher RefreshRunner, localCatalog string, logger *slog.Logger) *Router {
	return &Router{
		resolver:     resolver,
		refresher:    refresher,
		localCatalog: localCatalog,
		logger:       logger,
	}
}

// Route decides how to execute queryText. The policy is all-or-nothing:
// either every referenced table resolves to a valid cache and the whole query
// is rewritten, or the original text passes through untouched. Parse and
// deparse failures degrade to passthrough and are never surfaced as errors;
// a refresh failure aborts routing rather than serving stale data.
func (r *Router) Route(ctx context.Context, queryText, sourceName string) (RouteResult, error) {
	passthrough := RouteResult{Query: queryText, UsedCache: false}

	result, err := pg_query.Parse(queryText)
	if err != nil {
		r.logger.Debug("query not parseable, passing through",
			"source", sourceName, "error", err)
		return passthrough, nil
	}

	refs := collectRefs(result)
	if len(refs) == 0 {
		return passthrough, nil
	}

	// Resolve every identifier before touching anything: a single miss means
	// the query runs remotely in its original form.
	matches := make(map[string]*domain.CacheDefinition, len(refs))
	for _, ident := range identsOf(refs) {
		cache, err := r.resolve(ctx, ident)
		if err != nil {
			return RouteResult{}, err
		}
		if cache == nil {
			r.logger.Debug("table has no cache, passing through",
				"table", ident, "source", sourceName)
			return passthrough, nil
		}
		matches[ident] = cache
	}

	// Refresh each matched cache at most once. The refresher skips fresh
	// caches and coalesces concurrent refreshes; an error here aborts the
	// whole routing operation.
	refreshed := make(map[string]bool, len(matches))
	for _, cache := range matches {
		if refreshed[cache.CacheName] {
			continue
		}
		refreshed[cache.CacheName] = true

		status := r.refresher.Refresh(ctx, cache.CacheName, false)
		if status.Result == domain.RefreshError {
			return RouteResult{}, fmt.Errorf("refresh cache %q for routing: %s", cache.CacheName, status.Message)
		}
	}

	// Rewrite in place using the same traversal that extracted the refs.
	walkTableRefs(result, func(rv *pg_query.RangeVar) {
		cache, ok := matches[identFor(rv)]
		if !ok {
			return
		}
		rv.Catalogname = r.localCatalog
		rv.Schemaname = cache.SourceName
		rv.Relname = cache.CacheName
	})

	rewritten, err := pg_query.Deparse(result)
	if err != nil {
		r.logger.Warn("deparse failed after rewrite, passing through",
			"source", sourceName, "error", err)
		return passthrough, nil
	}

	names := make([]string, 0, len(refreshed))
	for name := range refreshed {
		names = append(names, name)
	}

	return RouteResult{Query: rewritten, UsedCache: true, CacheNames: names}, nil
}

// resolve matches a table identifier two ways, in order: the identifier is a
// cache name, or it appears in some cache's monitor_tables. First match wins.
func (r *Router) resolve(ctx context.Context, ident string) (*domain.CacheDefinition, error) {
	cache, err := r.resolver.ResolveCacheName(ctx, ident)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		return cache, nil
	}
	return r.resolver.ResolveByMonitorTable(ctx, ident)
}

// identFor builds the canonical [catalog.]schema.table identifier for a
// base-table node, uppercased for case-insensitive matching.
func identFor(rv *pg_query.RangeVar) string {
	parts := make([]string, 0, 3)
	if rv.Catalogname != "" {
		parts = append(parts, rv.Catalogname)
	}
	if rv.Schemaname != "" {
		parts = append(parts, rv.Schemaname)
	}
	parts = append(parts, rv.Relname)
	return strings.ToUpper(strings.Join(parts, "."))
}

// collectRefs gathers every base-table node in the statement.
func collectRefs(result *pg_query.ParseResult) []*pg_query.RangeVar {
	var refs []*pg_query.RangeVar
	walkTableRefs(result, func(rv *pg_query.RangeVar) {
		refs = append(refs, rv)
	})
	return refs
}

// identsOf returns the deduplicated identifiers of refs, preserving order.
func identsOf(refs []*pg_query.RangeVar) []string {
	seen := make(map[string]bool, len(refs))
	var idents []string
	for _, rv := range refs {
		ident := identFor(rv)
		if !seen[ident] {
			seen[ident] = true
			idents = append(idents, ident)
		}
	}
	return idents
}
