package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/hoanghai1803/murmur/internal/models"
)

// memBackend is an in-memory Backend for composite tests. Setting fail makes
// every operation error.
type memBackend struct {
	name    string
	batches map[string]*models.Batch
	fail    bool
	closed  bool
}

func newMemBackend(name string) *memBackend {
	return &memBackend{name: name, batches: make(map[string]*models.Batch)}
}

func (m *memBackend) Save(ctx context.Context, b *models.Batch) (string, error) {
	if m.fail {
		return "", errors.New(m.name + " unavailable")
	}
	m.batches[b.BatchID] = b
	return m.name + ":" + b.BatchID, nil
}

func (m *memBackend) Get(ctx context.Context, batchID string) (*models.Batch, error) {
	if m.fail {
		return nil, errors.New(m.name + " unavailable")
	}
	b, ok := m.batches[batchID]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *memBackend) List(ctx context.Context, limit int) ([]models.BatchSummary, error) {
	if m.fail {
		return nil, errors.New(m.name + " unavailable")
	}
	summaries := make([]models.BatchSummary, 0, len(m.batches))
	for _, b := range m.batches {
		summaries = append(summaries, models.BatchSummary{BatchID: b.BatchID, Query: b.Query})
	}
	return summaries, nil
}

func (m *memBackend) Stats(ctx context.Context) (*Stats, error) {
	if m.fail {
		return nil, errors.New(m.name + " unavailable")
	}
	return &Stats{Backend: m.name, Batches: len(m.batches)}, nil
}

func (m *memBackend) Close() error {
	m.closed = true
	return nil
}

func TestFallback_SavePrefersPrimary(t *testing.T) {
	primary := newMemBackend("primary")
	backup := newMemBackend("backup")
	f := NewFallback(primary, backup)

	location, err := f.Save(context.Background(), &models.Batch{BatchID: "abc123"})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if location != "primary:abc123" {
		t.Errorf("location = %q, want %q", location, "primary:abc123")
	}
	if len(backup.batches) != 0 {
		t.Error("backup should be untouched when the primary succeeds")
	}
}

func TestFallback_SaveDegradesToBackup(t *testing.T) {
	primary := newMemBackend("primary")
	primary.fail = true
	backup := newMemBackend("backup")
	f := NewFallback(primary, backup)

	location, err := f.Save(context.Background(), &models.Batch{BatchID: "abc123"})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if location != "backup:abc123" {
		t.Errorf("location = %q, want %q", location, "backup:abc123")
	}
}

func TestFallback_SaveBothFail(t *testing.T) {
	primary := newMemBackend("primary")
	primary.fail = true
	backup := newMemBackend("backup")
	backup.fail = true
	f := NewFallback(primary, backup)

	if _, err := f.Save(context.Background(), &models.Batch{BatchID: "abc123"}); err == nil {
		t.Fatal("Save() should fail when both backends fail")
	}
}

func TestFallback_GetConsultsBackup(t *testing.T) {
	primary := newMemBackend("primary")
	backup := newMemBackend("backup")
	backup.batches["only-here"] = &models.Batch{BatchID: "only-here"}
	f := NewFallback(primary, backup)

	b, err := f.Get(context.Background(), "only-here")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if b.BatchID != "only-here" {
		t.Errorf("BatchID = %q, want %q", b.BatchID, "only-here")
	}

	if _, err := f.Get(context.Background(), "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(nowhere) = %v, want ErrNotFound", err)
	}
}

func TestFallback_ListAndStatsFallBack(t *testing.T) {
	primary := newMemBackend("primary")
	primary.fail = true
	backup := newMemBackend("backup")
	backup.batches["x"] = &models.Batch{BatchID: "x", Query: "cats"}
	f := NewFallback(primary, backup)

	summaries, err := f.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("got %d summaries, want 1", len(summaries))
	}

	stats, err := f.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() unexpected error: %v", err)
	}
	if stats.Backend != "backup" {
		t.Errorf("stats.Backend = %q, want %q", stats.Backend, "backup")
	}
}

func TestFallback_CloseClosesBoth(t *testing.T) {
	primary := newMemBackend("primary")
	backup := newMemBackend("backup")
	f := NewFallback(primary, backup)

	if err := f.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if !primary.closed || !backup.closed {
		t.Error("both backends should be closed")
	}
}
