// Package collect implements the multi-source collection orchestrator: it
// expands a user query into variants, dispatches concurrent fetches to each
// platform, deduplicates incoming comments, and loops until a minimum unique
// corpus size is reached or the attempt, time, or diminishing-returns budget
// runs out.
package collect

import (
	"context"

	"github.com/hoanghai1803/murmur/internal/models"
)

// Collector is the uniform capability a comment platform exposes: find
// candidate containers for a query, then pull the comments out of one.
//
// Implementations must be stateless across calls (no result caching), so the
// orchestrator fully owns retry semantics, and must return failures as typed
// errors rather than panicking; one source's failure never touches the
// sibling source.
type Collector interface {
	Source() models.Source
	Search(ctx context.Context, query string, limit int) ([]models.Container, error)
	FetchComments(ctx context.Context, c *models.Container, limit int) ([]models.Comment, error)
}
