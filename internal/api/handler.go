// Package api provides HTTP handlers for the cache service REST API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danjsiegel/ducksync/internal/domain"
	"github.com/danjsiegel/ducksync/internal/engine"
	"github.com/danjsiegel/ducksync/internal/refresh"
	"github.com/danjsiegel/ducksync/internal/storage"
)

// Handler serves the /v1 API surface.
type Handler struct {
	store     domain.MetadataStore
	refresher *refresh.Orchestrator
	engine    *engine.CacheEngine
	cleaner   *storage.Cleaner
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(store domain.MetadataStore, refresher *refresh.Orchestrator,
	eng *engine.CacheEngine, cleaner *storage.Cleaner) *Handler {
	return &Handler{store: store, refresher: refresher, engine: eng, cleaner: cleaner}
}

// Routes mounts all API routes on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/sources", func(r chi.Router) {
		r.Post("/", h.createSource)
		r.Get("/", h.listSources)
		r.Get("/{name}", h.getSource)
		r.Delete("/{name}", h.deleteSource)
	})
	r.Route("/caches", func(r chi.Router) {
		r.Post("/", h.createCache)
		r.Get("/", h.listCaches)
		r.Get("/{name}", h.getCache)
		r.Delete("/{name}", h.deleteCache)
		r.Post("/{name}/refresh", h.refreshCache)
	})
	r.Post("/query", h.query)
	r.Post("/cleanup", h.cleanup)
}

// --- helpers ---

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := httpStatusFromDomainError(err)
	writeJSON(w, code, errorResponse{Code: code, Message: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return false
	}
	return true
}
