package collect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hoanghai1803/murmur/internal/models"
	"github.com/hoanghai1803/murmur/internal/platform"
)

// Limits bounds how much one source may fetch in a single round.
type Limits struct {
	Containers           int
	CommentsPerContainer int
}

// SourceResult is one source's fully buffered outcome for a round. Err is
// set when the source failed or timed out; Containers and Comments keep
// whatever was collected before the failure.
type SourceResult struct {
	Source     models.Source
	Containers []models.Container
	Comments   []models.Comment
	Err        error
}

// Dispatcher runs one round of collector calls concurrently, one worker per
// source, each with an inner bounded fan-out over its containers.
type Dispatcher struct {
	collectors []Collector
	workers    int
}

// NewDispatcher creates a Dispatcher over the given collectors. Their order
// fixes the merge order for every round. workers bounds the per-source
// concurrent comment fetches.
func NewDispatcher(collectors []Collector, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{collectors: collectors, workers: workers}
}

// RunRound issues one search+fetch pipeline per source under the round
// deadline and returns all results fully buffered, in the dispatcher's fixed
// collector order regardless of completion order, so downstream deduplication
// is deterministic for a given pair of result sets. A source
// that exceeds the deadline has its context cancelled, keeps its partial
// comments, and records the timeout as its error. Every worker is joined
// before return; nothing outlives the round.
func (d *Dispatcher) RunRound(ctx context.Context, query string, limits Limits, deadline time.Duration) []SourceResult {
	roundCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	results := make([]SourceResult, len(d.collectors))

	var g errgroup.Group
	for i, col := range d.collectors {
		g.Go(func() error {
			results[i] = d.collectSource(roundCtx, col, query, limits)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	return results
}

// collectSource runs the search+fetch pipeline for one source. Per-container
// fetch failures are absorbed: the container's partial comments are kept and
// the next container proceeds. The source-level Err is set only when the
// search fails, every fetch fails, or the round context expires.
func (d *Dispatcher) collectSource(ctx context.Context, col Collector, query string, limits Limits) SourceResult {
	res := SourceResult{Source: col.Source()}

	containers, err := col.Search(ctx, query, limits.Containers)
	if err != nil {
		res.Err = err
		return res
	}
	res.Containers = containers

	// Comments are gathered per container, then flattened in container
	// order so within-source ordering stays deterministic.
	perContainer := make([][]models.Comment, len(containers))

	var (
		g        errgroup.Group
		mu       sync.Mutex
		fetchErr error
		failed   int
	)
	g.SetLimit(d.workers)

	for i := range containers {
		g.Go(func() error {
			comments, err := col.FetchComments(ctx, &containers[i], limits.CommentsPerContainer)
			mu.Lock()
			defer mu.Unlock()
			perContainer[i] = comments
			if err != nil {
				slog.Warn("comment fetch failed",
					"source", col.Source(), "container", containers[i].ID, "error", err)
				failed++
				if fetchErr == nil {
					fetchErr = err
				}
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	for _, comments := range perContainer {
		res.Comments = append(res.Comments, comments...)
	}

	// A lone container failure is not a source failure; all of them failing,
	// or the round deadline firing mid-pipeline, is.
	if fetchErr != nil && (failed == len(containers) || ctx.Err() != nil) {
		res.Err = fetchErr
	}
	if ctx.Err() != nil && res.Err == nil {
		res.Err = &platform.Error{Source: col.Source(), Kind: platform.KindTimeout, Op: "round", Err: ctx.Err()}
	}
	return res
}
