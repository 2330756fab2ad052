package handlers

import (
	"context"
	"testing"

	"github.com/hoanghai1803/murmur/internal/archive/sqlite"
	"github.com/hoanghai1803/murmur/internal/models"
)

// newTestArchive creates an in-memory sqlite archive, closed when the test
// completes.
func newTestArchive(t *testing.T) *sqlite.Archive {
	t.Helper()

	a, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test archive: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	return a
}

// seedBatch stores a minimal batch with the given id and query.
func seedBatch(t *testing.T, a *sqlite.Archive, id, query string) *models.Batch {
	t.Helper()

	b := &models.Batch{
		BatchID:        id,
		Query:          query,
		UniqueComments: 7,
		GrandTotal:     9,
		AttemptsMade:   1,
		TargetAchieved: true,
	}
	if _, err := a.Save(context.Background(), b); err != nil {
		t.Fatalf("seeding batch %s: %v", id, err)
	}
	return b
}
