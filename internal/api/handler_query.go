package api

import (
	"net/http"

	"github.com/danjsiegel/ducksync/internal/domain"
)

type queryRequest struct {
	Source string `json:"source"`
	SQL    string `json:"sql"`
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Source == "" {
		writeError(w, domain.ErrValidation("source is required"))
		return
	}
	result, err := h.engine.Execute(r.Context(), req.Source, req.SQL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	result := h.cleaner.CleanupAll(r.Context())
	writeJSON(w, http.StatusOK, result)
}
