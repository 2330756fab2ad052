package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hoanghai1803/murmur/internal/ai"
)

const (
	defaultSuggestCount = 5
	maxSuggestCount     = 10
)

// SuggestRequest is the body of POST /api/suggest.
type SuggestRequest struct {
	Query string `json:"query"`
	Count int    `json:"count,omitempty"`
}

// SuggestResponse carries related queries for a topic.
type SuggestResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

// Suggest handles POST /api/suggest. It asks the AI provider for related
// queries; without a configured provider the endpoint is unavailable.
func Suggest(provider ai.AIProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			writeError(w, http.StatusServiceUnavailable,
				"AI provider not configured. Add your API key to config.toml")
			return
		}

		var req SuggestRequest
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

		count := req.Count
		if count <= 0 {
			count = defaultSuggestCount
		}
		if count > maxSuggestCount {
			count = maxSuggestCount
		}

		suggestions, err := provider.RelatedQueries(r.Context(), query, count)
		if err != nil {
			slog.Error("failed to get related queries", "query", query, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to generate suggestions")
			return
		}

		writeJSON(w, http.StatusOK, SuggestResponse{Query: query, Suggestions: suggestions})
	}
}
