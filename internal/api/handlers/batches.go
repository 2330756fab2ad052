package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/murmur/internal/archive"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListBatches handles GET /api/batches?limit=N, returning recent batch
// summaries newest first.
func ListBatches(backend archive.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseLimit(r, defaultListLimit, maxListLimit)

		summaries, err := backend.List(r.Context(), limit)
		if err != nil {
			slog.Error("failed to list batches", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list batches")
			return
		}

		writeJSON(w, http.StatusOK, summaries)
	}
}

// GetBatch handles GET /api/batches/{id}, returning the full stored batch.
func GetBatch(backend archive.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing batch id")
			return
		}

		batch, err := backend.Get(r.Context(), id)
		if errors.Is(err, archive.ErrNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		if err != nil {
			slog.Error("failed to load batch", "batch_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load batch")
			return
		}

		writeJSON(w, http.StatusOK, batch)
	}
}
