package archive

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hoanghai1803/murmur/internal/models"
)

var _ Backend = (*Fallback)(nil)

// Fallback wraps a primary backend with a backup. Saves that fail on the
// primary are retried against the backup so a flaky database degrades to
// file storage instead of losing the batch. Reads prefer the primary and
// consult the backup only when the primary cannot serve them.
type Fallback struct {
	primary Backend
	backup  Backend
}

// NewFallback returns a composite backend over primary and backup.
func NewFallback(primary, backup Backend) *Fallback {
	return &Fallback{primary: primary, backup: backup}
}

// Save writes to the primary backend, falling back to the backup when the
// primary fails.
func (f *Fallback) Save(ctx context.Context, b *models.Batch) (string, error) {
	location, err := f.primary.Save(ctx, b)
	if err == nil {
		return location, nil
	}
	slog.Warn("primary archive save failed, using backup", "batch_id", b.BatchID, "error", err)

	location, backupErr := f.backup.Save(ctx, b)
	if backupErr != nil {
		return "", errors.Join(err, backupErr)
	}
	return location, nil
}

// Get looks up the batch in the primary backend, then in the backup. A batch
// saved during a primary outage only exists in the backup.
func (f *Fallback) Get(ctx context.Context, batchID string) (*models.Batch, error) {
	b, err := f.primary.Get(ctx, batchID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		slog.Warn("primary archive get failed, trying backup", "batch_id", batchID, "error", err)
	}
	return f.backup.Get(ctx, batchID)
}

// List returns recent batch summaries from the primary, or from the backup
// when the primary fails.
func (f *Fallback) List(ctx context.Context, limit int) ([]models.BatchSummary, error) {
	summaries, err := f.primary.List(ctx, limit)
	if err == nil {
		return summaries, nil
	}
	slog.Warn("primary archive list failed, trying backup", "error", err)
	return f.backup.List(ctx, limit)
}

// Stats reports the primary backend's stats, or the backup's when the primary
// fails.
func (f *Fallback) Stats(ctx context.Context) (*Stats, error) {
	stats, err := f.primary.Stats(ctx)
	if err == nil {
		return stats, nil
	}
	slog.Warn("primary archive stats failed, trying backup", "error", err)
	return f.backup.Stats(ctx)
}

// Close closes both backends and joins their errors.
func (f *Fallback) Close() error {
	return errors.Join(f.primary.Close(), f.backup.Close())
}
