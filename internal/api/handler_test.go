package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "github.com/danjsiegel/ducksync/internal/db"
	"github.com/danjsiegel/ducksync/internal/db/repository"
	"github.com/danjsiegel/ducksync/internal/domain"
	"github.com/danjsiegel/ducksync/internal/engine"
	"github.com/danjsiegel/ducksync/internal/refresh"
	"github.com/danjsiegel/ducksync/internal/router"
	"github.com/danjsiegel/ducksync/internal/testutil"
)

// passthroughRouter routes everything to the remote side unchanged.
type passthroughRouter struct{}

func (passthroughRouter) Route(_ context.Context, queryText, _ string) (router.RouteResult, error) {
	return router.RouteResult{Query: queryText, UsedCache: false}, nil
}

// scratchRemote runs "remote" queries on a local scratch database.
type scratchRemote struct {
	db *sql.DB
}

func (r *scratchRemote) QueryContext(ctx context.Context, _ string, query string) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query)
}

type apiFixture struct {
	store  *repository.Metastore
	writer *testutil.MockWriter
	srv    *httptest.Server
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	scratch, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = scratch.Close() })

	store := repository.NewMetastore(internaldb.OpenTestSQLite(t))
	logger := slog.New(slog.DiscardHandler)

	probe := &testutil.MockProbe{Metadata: map[string]string{"DB.PUBLIC.ORDERS": "2024-01-01 00:00:00"}}
	writer := &testutil.MockWriter{Rows: 5}
	refresher := refresh.NewOrchestrator(store, probe, writer, "ducksync", logger)

	remote := &scratchRemote{db: scratch}
	eng := engine.NewCacheEngine(passthroughRouter{}, store, nil, remote, logger)

	handler := NewHandler(store, refresher, eng, nil)
	r := chi.NewRouter()
	r.Route("/v1", handler.Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &apiFixture{store: store, writer: writer, srv: srv}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (f *apiFixture) createSource(t *testing.T, passthrough bool) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/v1/sources", sourceRequest{
		SourceName:         "sales",
		DriverKind:         domain.DriverSnowflake,
		CredentialRef:      "sales_cred",
		PassthroughEnabled: passthrough,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func (f *apiFixture) createCache(t *testing.T) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/v1/caches", cacheRequest{
		CacheName:     "daily_orders",
		SourceName:    "sales",
		SourceQuery:   "SELECT * FROM db.public.orders",
		MonitorTables: []string{"DB.PUBLIC.ORDERS"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestSourcesEndpoints(t *testing.T) {
	f := setupAPI(t)
	f.createSource(t, true)

	t.Run("get", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/sources/sales", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var src sourceResponse
		decode(t, resp, &src)
		assert.Equal(t, "sales", src.SourceName)
		assert.True(t, src.PassthroughEnabled)
	})

	t.Run("list", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/sources", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Sources []sourceResponse `json:"sources"`
		}
		decode(t, resp, &out)
		assert.Len(t, out.Sources, 1)
	})

	t.Run("invalid driver rejected", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/sources", sourceRequest{
			SourceName: "x", DriverKind: "bigquery", CredentialRef: "c",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete then 404", func(t *testing.T) {
		resp := f.do(t, http.MethodDelete, "/v1/sources/sales", nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp = f.do(t, http.MethodGet, "/v1/sources/sales", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCachesEndpoints(t *testing.T) {
	f := setupAPI(t)
	f.createSource(t, false)
	f.createCache(t)

	t.Run("get includes empty state", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/caches/daily_orders", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var cache cacheResponse
		decode(t, resp, &cache)
		assert.Equal(t, "daily_orders", cache.CacheName)
		assert.False(t, cache.CreatedAt.IsZero())
		require.NotNil(t, cache.State)
		assert.Nil(t, cache.State.LastRefresh)
		assert.Zero(t, cache.State.RefreshCount)
	})

	t.Run("create against unknown source is 404", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/caches", cacheRequest{
			CacheName:     "orphan",
			SourceName:    "ghost",
			SourceQuery:   "SELECT 1",
			MonitorTables: []string{"DB.PUBLIC.ORDERS"},
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("refresh populates state", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/caches/daily_orders/refresh", refreshRequest{})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var status domain.RefreshStatus
		decode(t, resp, &status)
		assert.Equal(t, domain.RefreshRefreshed, status.Result)
		require.NotNil(t, status.Rows)
		assert.Equal(t, int64(5), *status.Rows)

		resp = f.do(t, http.MethodGet, "/v1/caches/daily_orders", nil)
		var cache cacheResponse
		decode(t, resp, &cache)
		require.NotNil(t, cache.State)
		assert.NotNil(t, cache.State.LastRefresh)
		assert.Equal(t, int64(1), cache.State.RefreshCount)
	})

	t.Run("second refresh skips", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/caches/daily_orders/refresh", refreshRequest{})
		var status domain.RefreshStatus
		decode(t, resp, &status)
		assert.Equal(t, domain.RefreshSkipped, status.Result)
	})

	t.Run("force refresh", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/caches/daily_orders/refresh", refreshRequest{Force: true})
		var status domain.RefreshStatus
		decode(t, resp, &status)
		assert.Equal(t, domain.RefreshRefreshed, status.Result)
	})

	t.Run("refresh unknown cache is 404", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/caches/nope/refresh", refreshRequest{})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		resp := f.do(t, http.MethodDelete, "/v1/caches/daily_orders", nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestQueryEndpoint(t *testing.T) {
	f := setupAPI(t)
	f.createSource(t, true)

	t.Run("passthrough query", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/query", queryRequest{
			Source: "sales", SQL: "SELECT 1 AS one",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var result engine.QueryResult
		decode(t, resp, &result)
		assert.Equal(t, []string{"one"}, result.Columns)
		assert.Equal(t, 1, result.RowCount)
		assert.False(t, result.UsedCache)
	})

	t.Run("missing source", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/query", queryRequest{SQL: "SELECT 1"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown source", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/query", queryRequest{Source: "nope", SQL: "SELECT 1"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/v1/query", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPassthroughDisabledQuery(t *testing.T) {
	f := setupAPI(t)
	f.createSource(t, false)

	resp := f.do(t, http.MethodPost, "/v1/query", queryRequest{Source: "sales", SQL: "SELECT 1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	decode(t, resp, &out)
	assert.Contains(t, out.Message, "passthrough is disabled")
}
