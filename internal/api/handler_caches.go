package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danjsiegel/ducksync/internal/domain"
)

type cacheRequest struct {
	CacheName     string   `json:"cache_name"`
	SourceName    string   `json:"source_name"`
	SourceQuery   string   `json:"source_query"`
	MonitorTables []string `json:"monitor_tables"`
	TTLSeconds    *int64   `json:"ttl_seconds,omitempty"`
}

type cacheStateResponse struct {
	LastRefresh     *time.Time `json:"last_refresh,omitempty"`
	SourceStateHash *string    `json:"source_state_hash,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	RefreshCount    int64      `json:"refresh_count"`
	LastRowCount    *int64     `json:"last_row_count,omitempty"`
	LastDurationMS  *float64   `json:"last_duration_ms,omitempty"`
}

type cacheResponse struct {
	CacheName     string              `json:"cache_name"`
	SourceName    string              `json:"source_name"`
	SourceQuery   string              `json:"source_query"`
	MonitorTables []string            `json:"monitor_tables"`
	TTLSeconds    *int64              `json:"ttl_seconds,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	State         *cacheStateResponse `json:"state,omitempty"`
}

type refreshRequest struct {
	Force bool `json:"force"`
}

func cacheToAPI(c *domain.CacheDefinition) cacheResponse {
	return cacheResponse{
		CacheName:     c.CacheName,
		SourceName:    c.SourceName,
		SourceQuery:   c.SourceQuery,
		MonitorTables: c.MonitorTables,
		TTLSeconds:    c.TTLSeconds,
		CreatedAt:     c.CreatedAt,
	}
}

func stateToAPI(s *domain.CacheState) *cacheStateResponse {
	if s == nil {
		return nil
	}
	return &cacheStateResponse{
		LastRefresh:     s.LastRefresh,
		SourceStateHash: s.SourceStateHash,
		ExpiresAt:       s.ExpiresAt,
		RefreshCount:    s.RefreshCount,
		LastRowCount:    s.LastRowCount,
		LastDurationMS:  s.LastDurationMS,
	}
}

func (h *Handler) createCache(w http.ResponseWriter, r *http.Request) {
	var req cacheRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cache := &domain.CacheDefinition{
		CacheName:     req.CacheName,
		SourceName:    req.SourceName,
		SourceQuery:   req.SourceQuery,
		MonitorTables: req.MonitorTables,
		TTLSeconds:    req.TTLSeconds,
	}
	if err := h.store.CreateCache(r.Context(), cache); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.InitializeState(r.Context(), cache.CacheName); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cacheToAPI(cache))
}

func (h *Handler) listCaches(w http.ResponseWriter, r *http.Request) {
	caches, err := h.store.ListCaches(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]cacheResponse, len(caches))
	for i := range caches {
		out[i] = cacheToAPI(&caches[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"caches": out})
}

// getCache returns the definition together with its runtime state.
// A cache that was defined but never refreshed has an empty state block.
func (h *Handler) getCache(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cache, err := h.store.GetCache(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := cacheToAPI(cache)
	state, err := h.store.GetState(r.Context(), cache.CacheName)
	if err != nil {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			writeError(w, err)
			return
		}
	}
	resp.State = stateToAPI(state)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteCache(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCache(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// refreshCache triggers a refresh cycle. The response is always 200 with a
// structured status; ERROR outcomes are reported in the body, not as HTTP
// failures, so callers can distinguish "refresh ran and failed" from
// "request never reached the orchestrator".
func (h *Handler) refreshCache(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := h.store.GetCache(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}

	var req refreshRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	status := h.refresher.Refresh(r.Context(), name, req.Force)
	writeJSON(w, http.StatusOK, status)
}
