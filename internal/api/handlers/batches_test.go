package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/murmur/internal/models"
)

// withURLParam injects a chi URL parameter into the request context, the way
// the router would during dispatch.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestListBatches(t *testing.T) {
	a := newTestArchive(t)
	for _, id := range []string{"aaaa0000", "bbbb0000", "cccc0000"} {
		seedBatch(t, a, id, "cats")
	}

	r := httptest.NewRequest(http.MethodGet, "/api/batches?limit=2", nil)
	w := httptest.NewRecorder()
	ListBatches(a).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var summaries []models.BatchSummary
	if err := json.NewDecoder(w.Body).Decode(&summaries); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("got %d summaries, want 2 (limit)", len(summaries))
	}
}

func TestListBatches_DefaultLimit(t *testing.T) {
	a := newTestArchive(t)
	seedBatch(t, a, "aaaa0000", "cats")

	r := httptest.NewRequest(http.MethodGet, "/api/batches?limit=bogus", nil)
	w := httptest.NewRecorder()
	ListBatches(a).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}

	var summaries []models.BatchSummary
	if err := json.NewDecoder(w.Body).Decode(&summaries); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("got %d summaries, want 1", len(summaries))
	}
}

func TestGetBatch(t *testing.T) {
	a := newTestArchive(t)
	seedBatch(t, a, "abcd1234", "mechanical keyboards")

	r := httptest.NewRequest(http.MethodGet, "/api/batches/abcd1234", nil)
	r = withURLParam(r, "id", "abcd1234")
	w := httptest.NewRecorder()
	GetBatch(a).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var batch models.Batch
	if err := json.NewDecoder(w.Body).Decode(&batch); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if batch.BatchID != "abcd1234" {
		t.Errorf("batch_id = %q, want %q", batch.BatchID, "abcd1234")
	}
	if batch.Query != "mechanical keyboards" {
		t.Errorf("query = %q, want %q", batch.Query, "mechanical keyboards")
	}
}

func TestGetBatch_NotFound(t *testing.T) {
	a := newTestArchive(t)

	r := httptest.NewRequest(http.MethodGet, "/api/batches/missing0", nil)
	r = withURLParam(r, "id", "missing0")
	w := httptest.NewRecorder()
	GetBatch(a).ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNotFound)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["error"] == "" {
		t.Error("error message missing from response")
	}
}

func TestGetStats(t *testing.T) {
	a := newTestArchive(t)
	seedBatch(t, a, "aaaa0000", "cats")
	seedBatch(t, a, "bbbb0000", "dogs")

	r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	GetStats(a).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}

	var stats struct {
		Backend        string `json:"backend"`
		Batches        int    `json:"batches"`
		UniqueComments int    `json:"unique_comments"`
	}
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stats.Backend != "sqlite" {
		t.Errorf("backend = %q, want %q", stats.Backend, "sqlite")
	}
	if stats.Batches != 2 {
		t.Errorf("batches = %d, want 2", stats.Batches)
	}
	if stats.UniqueComments != 14 {
		t.Errorf("unique_comments = %d, want 14", stats.UniqueComments)
	}
}
