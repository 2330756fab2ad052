package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hoanghai1803/murmur/internal/archive"
)

// GetStats handles GET /api/stats, reporting what the archive holds.
func GetStats(backend archive.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := backend.Stats(r.Context())
		if err != nil {
			slog.Error("failed to read archive stats", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read archive stats")
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}
