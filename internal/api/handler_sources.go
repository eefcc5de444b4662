package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danjsiegel/ducksync/internal/domain"
)

type sourceRequest struct {
	SourceName         string `json:"source_name"`
	DriverKind         string `json:"driver_kind"`
	CredentialRef      string `json:"credential_ref"`
	PassthroughEnabled bool   `json:"passthrough_enabled"`
}

type sourceResponse struct {
	SourceName         string    `json:"source_name"`
	DriverKind         string    `json:"driver_kind"`
	CredentialRef      string    `json:"credential_ref"`
	PassthroughEnabled bool      `json:"passthrough_enabled"`
	CreatedAt          time.Time `json:"created_at"`
}

func sourceToAPI(s *domain.SourceDefinition) sourceResponse {
	return sourceResponse{
		SourceName:         s.SourceName,
		DriverKind:         s.DriverKind,
		CredentialRef:      s.CredentialRef,
		PassthroughEnabled: s.PassthroughEnabled,
		CreatedAt:          s.CreatedAt,
	}
}

func (h *Handler) createSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	src := &domain.SourceDefinition{
		SourceName:         req.SourceName,
		DriverKind:         req.DriverKind,
		CredentialRef:      req.CredentialRef,
		PassthroughEnabled: req.PassthroughEnabled,
	}
	if err := h.store.CreateSource(r.Context(), src); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sourceToAPI(src))
}

func (h *Handler) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.ListSources(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]sourceResponse, len(sources))
	for i := range sources {
		out[i] = sourceToAPI(&sources[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": out})
}

func (h *Handler) getSource(w http.ResponseWriter, r *http.Request) {
	src, err := h.store.GetSource(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceToAPI(src))
}

func (h *Handler) deleteSource(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSource(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
