package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hoanghai1803/murmur/internal/archive"
	"github.com/hoanghai1803/murmur/internal/collect"
)

const (
	minQueryLen = 2
	maxQueryLen = 500
)

// CollectDeps carries everything the collect handler needs.
type CollectDeps struct {
	Collectors []collect.Collector
	Suggester  collect.Suggester
	Archive    archive.Backend
	Config     collect.Config
}

// CollectRequest is the body of POST /api/collect. The optional budget
// overrides apply to this request only.
type CollectRequest struct {
	Query          string `json:"query"`
	TargetComments int    `json:"target_comments,omitempty"`
	MaxAttempts    int    `json:"max_attempts,omitempty"`
}

// Collect handles POST /api/collect. It runs a full collection session for
// the query and returns the batch, archived or not. Source failures are
// absorbed into the batch record; only invalid input or a fully empty result
// produces a non-2xx response.
func Collect(deps CollectDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req CollectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		query := strings.TrimSpace(req.Query)
		if n := utf8.RuneCountInString(query); n < minQueryLen || n > maxQueryLen {
			writeError(w, http.StatusBadRequest,
				"query must be between 2 and 500 characters")
			return
		}

		cfg := deps.Config
		if req.TargetComments > 0 {
			cfg.TargetComments = req.TargetComments
		}
		if req.MaxAttempts > 0 {
			cfg.MaxAttempts = min(req.MaxAttempts, deps.Config.MaxAttempts)
			if cfg.StallAttempts > cfg.MaxAttempts {
				cfg.StallAttempts = cfg.MaxAttempts
			}
		}

		slog.Info("collection requested",
			"query", query, "target", cfg.TargetComments, "max_attempts", cfg.MaxAttempts)

		controller := collect.NewController(cfg, deps.Collectors, deps.Suggester)
		sum := controller.Run(ctx, query)

		if len(sum.Containers) == 0 {
			slog.Warn("collection produced nothing", "query", query, "outcome", sum.Outcome)
			writeError(w, http.StatusBadGateway,
				"no results from any source; try a different query")
			return
		}

		batch := collect.NewAggregator(deps.Archive).Finalize(ctx, sum)
		writeJSON(w, http.StatusOK, batch)
	}
}
