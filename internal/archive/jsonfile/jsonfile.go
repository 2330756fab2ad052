// Package jsonfile is the file-based archive backend. Each batch becomes one
// JSON document named <query>_<timestamp>_<id>.json under a data directory.
// It also serves as the backup target for the Fallback composite.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/hoanghai1803/murmur/internal/archive"
	"github.com/hoanghai1803/murmur/internal/models"
)

var _ archive.Backend = (*Archive)(nil)

const maxFilenameQuery = 60

// Archive stores one JSON document per batch in a directory.
type Archive struct {
	mu  sync.Mutex
	dir string
}

// Open ensures the data directory exists and returns an Archive over it.
func Open(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %q: %w", dir, err)
	}
	slog.Info("opened jsonfile archive", "dir", dir)
	return &Archive{dir: dir}, nil
}

// Close is a no-op; files are closed after every operation.
func (a *Archive) Close() error {
	return nil
}

// Save writes the batch document and returns its "file:<filename>" location.
func (a *Archive) Save(ctx context.Context, b *models.Batch) (string, error) {
	name := fmt.Sprintf("%s_%s_%s.json",
		sanitizeFilename(b.Query),
		b.Timestamp.UTC().Format("20060102_150405"),
		b.BatchID,
	)

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding batch %s: %w", b.BatchID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.WriteFile(filepath.Join(a.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing batch file %q: %w", name, err)
	}

	return "file:" + name, nil
}

// Get scans the directory for the file carrying the batch id suffix and
// decodes it, or returns archive.ErrNotFound.
func (a *Archive) Get(ctx context.Context, batchID string) (*models.Batch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	names, err := a.batchFiles()
	if err != nil {
		return nil, err
	}

	suffix := "_" + batchID + ".json"
	for _, name := range names {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		var b models.Batch
		if err := a.decode(name, &b); err != nil {
			return nil, err
		}
		return &b, nil
	}

	return nil, archive.ErrNotFound
}

// List decodes every batch document's header fields and returns up to limit
// summaries, newest first.
func (a *Archive) List(ctx context.Context, limit int) ([]models.BatchSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	names, err := a.batchFiles()
	if err != nil {
		return nil, err
	}

	summaries := []models.BatchSummary{}
	for _, name := range names {
		var b models.Batch
		if err := a.decode(name, &b); err != nil {
			slog.Warn("skipping unreadable batch file", "file", name, "error", err)
			continue
		}
		summaries = append(summaries, models.BatchSummary{
			BatchID:        b.BatchID,
			Query:          b.Query,
			Timestamp:      b.Timestamp,
			UniqueComments: b.UniqueComments,
			GrandTotal:     b.GrandTotal,
			AttemptsMade:   b.AttemptsMade,
			TargetAchieved: b.TargetAchieved,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})
	if limit > 0 && limit < len(summaries) {
		summaries = summaries[:limit]
	}

	return summaries, nil
}

// Stats reports how many batches and comments the directory holds.
func (a *Archive) Stats(ctx context.Context) (*archive.Stats, error) {
	summaries, err := a.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	stats := &archive.Stats{Backend: "jsonfile", Batches: len(summaries)}
	for _, s := range summaries {
		stats.UniqueComments += s.UniqueComments
		stats.GrandTotal += s.GrandTotal
	}
	return stats, nil
}

// batchFiles returns the .json entries of the data directory. Callers hold
// the mutex.
func (a *Archive) batchFiles() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory %q: %w", a.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (a *Archive) decode(name string, b *models.Batch) error {
	data, err := os.ReadFile(filepath.Join(a.dir, name))
	if err != nil {
		return fmt.Errorf("reading batch file %q: %w", name, err)
	}
	if err := json.Unmarshal(data, b); err != nil {
		return fmt.Errorf("decoding batch file %q: %w", name, err)
	}
	return nil
}

// sanitizeFilename reduces a query to a safe filename fragment: spaces become
// underscores, anything outside [alphanumeric _ -] is dropped, runs of
// underscores collapse, and the result is lowercased and length-capped.
func sanitizeFilename(query string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(query) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			sb.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '_':
			sb.WriteRune('_')
		}
	}

	s := sb.String()
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	if len(s) > maxFilenameQuery {
		s = s[:maxFilenameQuery]
	}
	s = strings.Trim(s, "_")
	if s == "" {
		return "query"
	}
	return s
}
