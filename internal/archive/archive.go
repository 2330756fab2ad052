// Package archive defines the persistence contract for collected batches.
//
// Concrete backends live in subpackages (sqlite, postgres, jsonfile); all of
// them store the full batch document plus a small header used for listings.
package archive

import (
	"context"
	"errors"

	"github.com/hoanghai1803/murmur/internal/models"
)

// ErrNotFound is returned when a requested batch does not exist.
var ErrNotFound = errors.New("batch not found")

// Stats summarizes what a backend holds.
type Stats struct {
	Backend        string `json:"backend"`
	Batches        int    `json:"batches"`
	UniqueComments int    `json:"unique_comments"`
	GrandTotal     int    `json:"grand_total"`
}

// Backend stores and retrieves collected batches. Save returns a location
// string such as "sqlite:<batch_id>" or "file:<filename>" that ends up in the
// batch's saved_to field.
type Backend interface {
	Save(ctx context.Context, b *models.Batch) (string, error)
	Get(ctx context.Context, batchID string) (*models.Batch, error)
	List(ctx context.Context, limit int) ([]models.BatchSummary, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
