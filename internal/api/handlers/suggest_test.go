package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeProvider implements ai.AIProvider with canned responses.
type fakeProvider struct {
	related   []string
	err       error
	lastCount int
}

func (f *fakeProvider) SuggestVariants(ctx context.Context, query string, n int) ([]string, error) {
	return f.related, f.err
}

func (f *fakeProvider) RelatedQueries(ctx context.Context, query string, n int) ([]string, error) {
	f.lastCount = n
	return f.related, f.err
}

func postSuggest(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/api/suggest", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestSuggest(t *testing.T) {
	provider := &fakeProvider{related: []string{"cat breeds", "cat care", "kitten advice"}}

	w := postSuggest(t, Suggest(provider), `{"query": "cats"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp SuggestResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Query != "cats" {
		t.Errorf("query = %q, want %q", resp.Query, "cats")
	}
	if len(resp.Suggestions) != 3 {
		t.Errorf("got %d suggestions, want 3", len(resp.Suggestions))
	}
	if provider.lastCount != defaultSuggestCount {
		t.Errorf("count = %d, want default %d", provider.lastCount, defaultSuggestCount)
	}
}

func TestSuggest_CountClamped(t *testing.T) {
	provider := &fakeProvider{related: []string{"a"}}

	w := postSuggest(t, Suggest(provider), `{"query": "cats", "count": 50}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	if provider.lastCount != maxSuggestCount {
		t.Errorf("count = %d, want clamped %d", provider.lastCount, maxSuggestCount)
	}
}

func TestSuggest_NoProvider(t *testing.T) {
	w := postSuggest(t, Suggest(nil), `{"query": "cats"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestSuggest_InvalidInput(t *testing.T) {
	provider := &fakeProvider{related: []string{"a"}}

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "empty query", body: `{"query": ""}`},
		{name: "too short", body: `{"query": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postSuggest(t, Suggest(provider), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("got status %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSuggest_ProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}

	w := postSuggest(t, Suggest(provider), `{"query": "cats"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
