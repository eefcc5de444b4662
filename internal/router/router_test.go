package router

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// fakeResolver resolves uppercased identifiers from in-memory maps, the same
// contract the metastore implements.
type fakeResolver struct {
	byName    map[string]*domain.CacheDefinition
	byMonitor map[string]*domain.CacheDefinition
}

func (f *fakeResolver) ResolveCacheName(_ context.Context, ident string) (*domain.CacheDefinition, error) {
	return f.byName[strings.ToUpper(ident)], nil
}

func (f *fakeResolver) ResolveByMonitorTable(_ context.Context, ident string) (*domain.CacheDefinition, error) {
	return f.byMonitor[strings.ToUpper(ident)], nil
}

type fakeRefresher struct {
	calls  []string
	status domain.RefreshStatus
}

func (f *fakeRefresher) Refresh(_ context.Context, cacheName string, _ bool) domain.RefreshStatus {
	f.calls = append(f.calls, cacheName)
	return f.status
}

func newTestRouter(caches ...*domain.CacheDefinition) (*Router, *fakeRefresher) {
	resolver := &fakeResolver{
		byName:    map[string]*domain.CacheDefinition{},
		byMonitor: map[string]*domain.CacheDefinition{},
	}
	for _, cache := range caches {
		resolver.byName[strings.ToUpper(cache.CacheName)] = cache
		for _, monitored := range cache.MonitorTables {
			resolver.byMonitor[strings.ToUpper(monitored)] = cache
		}
	}
	refresher := &fakeRefresher{status: domain.RefreshStatus{Result: domain.RefreshSkipped}}
	return NewRouter(resolver, refresher, "ducksync", slog.New(slog.DiscardHandler)), refresher
}

func ordersCache() *domain.CacheDefinition {
	return &domain.CacheDefinition{
		CacheName:     "daily_orders",
		SourceName:    "sales",
		SourceQuery:   "SELECT * FROM db.public.orders",
		MonitorTables: []string{"DB.PUBLIC.ORDERS"},
	}
}

func TestRoute_RewritesMonitoredTable(t *testing.T) {
	r, refresher := newTestRouter(ordersCache())

	result, err := r.Route(context.Background(), "SELECT * FROM db.public.orders", "sales")
	require.NoError(t, err)
	assert.True(t, result.UsedCache)
	assert.Contains(t, result.Query, "ducksync.sales.daily_orders")
	assert.NotContains(t, result.Query, "db.public.orders")
	assert.Equal(t, []string{"daily_orders"}, result.CacheNames)
	assert.Equal(t, []string{"daily_orders"}, refresher.calls)
}

func TestRoute_RewritesCacheNameReference(t *testing.T) {
	r, _ := newTestRouter(ordersCache())

	result, err := r.Route(context.Background(), "SELECT count(*) FROM daily_orders", "sales")
	require.NoError(t, err)
	assert.True(t, result.UsedCache)
	assert.Contains(t, result.Query, "ducksync.sales.daily_orders")
}

func TestRoute_CaseInsensitiveMatch(t *testing.T) {
	r, _ := newTestRouter(ordersCache())

	result, err := r.Route(context.Background(), `SELECT * FROM DB.Public.Orders`, "sales")
	require.NoError(t, err)
	assert.True(t, result.UsedCache)
}

func TestRoute_JoinWithUncachedTablePassesThrough(t *testing.T) {
	r, refresher := newTestRouter(ordersCache())

	query := "SELECT o.id FROM db.public.orders o JOIN db.public.customers c ON o.cid = c.id"
	result, err := r.Route(context.Background(), query, "sales")
	require.NoError(t, err)
	assert.False(t, result.UsedCache)
	assert.Equal(t, query, result.Query)
	// All-or-nothing: no cache gets refreshed when the query passes through.
	assert.Empty(t, refresher.calls)
}

func TestRoute_JoinFullyCachedRewritesBoth(t *testing.T) {
	customers := &domain.CacheDefinition{
		CacheName:     "dim_customers",
		SourceName:    "sales",
		SourceQuery:   "SELECT * FROM db.public.customers",
		MonitorTables: []string{"DB.PUBLIC.CUSTOMERS"},
	}
	r, refresher := newTestRouter(ordersCache(), customers)

	query := "SELECT o.id FROM db.public.orders o JOIN db.public.customers c ON o.cid = c.id"
	result, err := r.Route(context.Background(), query, "sales")
	require.NoError(t, err)
	assert.True(t, result.UsedCache)
	assert.Contains(t, result.Query, "ducksync.sales.daily_orders")
	assert.Contains(t, result.Query, "ducksync.sales.dim_customers")
	assert.ElementsMatch(t, []string{"daily_orders", "dim_customers"}, refresher.calls)
}

func TestRoute_SubqueryAndSetOperations(t *testing.T) {
	r, _ := newTestRouter(ordersCache())

	t.Run("subquery in from clause", func(t *testing.T) {
		result, err := r.Route(context.Background(),
			"SELECT * FROM (SELECT id FROM db.public.orders) sub", "sales")
		require.NoError(t, err)
		assert.True(t, result.UsedCache)
		assert.Contains(t, result.Query, "ducksync.sales.daily_orders")
	})

	t.Run("subquery in where clause", func(t *testing.T) {
		result, err := r.Route(context.Background(),
			"SELECT 1 WHERE 5 IN (SELECT id FROM db.public.orders)", "sales")
		require.NoError(t, err)
		assert.True(t, result.UsedCache)
		assert.Contains(t, result.Query, "ducksync.sales.daily_orders")
	})

	t.Run("union branches", func(t *testing.T) {
		result, err := r.Route(context.Background(),
			"SELECT id FROM db.public.orders UNION ALL SELECT id FROM db.public.orders", "sales")
		require.NoError(t, err)
		assert.True(t, result.UsedCache)
		assert.NotContains(t, result.Query, "db.public.orders")
	})

	t.Run("cte body", func(t *testing.T) {
		// The CTE's self-reference in the outer FROM does not resolve, so the
		// whole query passes through untouched. Routing never half-rewrites.
		result, err := r.Route(context.Background(),
			"WITH recent AS (SELECT id FROM db.public.orders) SELECT * FROM recent", "sales")
		require.NoError(t, err)
		assert.False(t, result.UsedCache)
	})
}

func TestRoute_MalformedQueryPassesThrough(t *testing.T) {
	r, refresher := newTestRouter(ordersCache())

	query := "SELEC * FORM orders"
	result, err := r.Route(context.Background(), query, "sales")
	require.NoError(t, err)
	assert.False(t, result.UsedCache)
	assert.Equal(t, query, result.Query)
	assert.Empty(t, refresher.calls)
}

func TestRoute_NoTableRefsPassesThrough(t *testing.T) {
	r, _ := newTestRouter(ordersCache())

	result, err := r.Route(context.Background(), "SELECT 1 + 1", "sales")
	require.NoError(t, err)
	assert.False(t, result.UsedCache)
	assert.Equal(t, "SELECT 1 + 1", result.Query)
}

func TestRoute_RefreshFailureAborts(t *testing.T) {
	r, refresher := newTestRouter(ordersCache())
	refresher.status = domain.RefreshStatus{
		Result:  domain.RefreshError,
		Message: "refresh failed: warehouse unreachable",
	}

	_, err := r.Route(context.Background(), "SELECT * FROM db.public.orders", "sales")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily_orders")
	assert.Contains(t, err.Error(), "warehouse unreachable")
}

func TestRoute_RepeatedTableRefreshedOnce(t *testing.T) {
	r, refresher := newTestRouter(ordersCache())

	result, err := r.Route(context.Background(),
		"SELECT a.id FROM db.public.orders a JOIN db.public.orders b ON a.id = b.id", "sales")
	require.NoError(t, err)
	assert.True(t, result.UsedCache)
	assert.Equal(t, []string{"daily_orders"}, refresher.calls)
}
