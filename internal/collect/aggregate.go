package collect

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hoanghai1803/murmur/internal/models"
)

// Sink is where a finished batch goes. archive.Backend satisfies it.
type Sink interface {
	Save(ctx context.Context, b *models.Batch) (string, error)
}

// sourceOrder fixes how contributing sources are listed in a batch.
var sourceOrder = []models.Source{models.SourceYouTube, models.SourceReddit}

// Aggregator builds the final batch from a session summary and hands it to
// the persistence sink.
type Aggregator struct {
	sink Sink
}

// NewAggregator creates an Aggregator writing to sink. A nil sink skips
// persistence; the batch is still built and returned.
func NewAggregator(sink Sink) *Aggregator {
	return &Aggregator{sink: sink}
}

// Finalize builds the batch and saves it. Persistence failure never loses
// collection work: the batch comes back with a warning marker instead of an
// error.
func (a *Aggregator) Finalize(ctx context.Context, sum *Summary) *models.Batch {
	batch := BuildBatch(sum, time.Now())

	if a.sink == nil {
		return batch
	}

	location, err := a.sink.Save(ctx, batch)
	if err != nil {
		slog.Warn("failed to archive batch", "batch_id", batch.BatchID, "error", err)
		batch.Warning = "batch was not archived: " + err.Error()
		return batch
	}
	batch.SavedTo = location
	return batch
}

// BuildBatch assembles the terminal batch record from a session summary.
// The batch id is assigned here, exactly once, and never reused.
func BuildBatch(sum *Summary, now time.Time) *models.Batch {
	batch := &models.Batch{
		BatchID:        uuid.NewString()[:8],
		Query:          sum.Query,
		Timestamp:      now.UTC(),
		TotalComments:  sum.RawTotal,
		UniqueComments: len(sum.Accepted),
		TotalReplies:   sum.RawReplies,
		GrandTotal:     sum.RawTotal,
		AttemptsMade:   len(sum.Attempts),
		TargetAchieved: sum.TargetAchieved,
		LatencySeconds: sum.Elapsed.Seconds(),
		Attempts:       sum.Attempts,
	}

	batch.Videos = buildListings(sum)

	contributed := make(map[models.Source]bool)
	for _, container := range sum.Containers {
		contributed[container.Source] = true
		switch container.Source {
		case models.SourceYouTube:
			batch.TotalYouTubeVideos++
		case models.SourceReddit:
			batch.TotalRedditPosts++
		}
	}
	for _, src := range sourceOrder {
		if contributed[src] {
			batch.Sources = append(batch.Sources, src)
		}
	}

	return batch
}

// buildListings groups the accepted comments under their containers in
// first-seen container order. Accepted replies are nested under their parent
// when the parent was accepted too; replies whose parent was dropped as a
// duplicate stay as standalone entries.
func buildListings(sum *Summary) []models.ContainerListing {
	type key struct {
		source models.Source
		id     string
	}

	// Top-level accepted comments by (container, comment id), for nesting.
	topLevel := make(map[key]map[string]int) // container key → comment id → index in listing
	listingIndex := make(map[key]int)

	listings := make([]models.ContainerListing, 0, len(sum.Containers))
	for _, container := range sum.Containers {
		k := key{container.Source, container.ID}
		listingIndex[k] = len(listings)
		topLevel[k] = make(map[string]int)
		listings = append(listings, models.ContainerListing{
			Source:   container.Source,
			Video:    container.Video,
			Post:     container.Post,
			Comments: []models.Comment{},
		})
	}

	for _, comment := range sum.Accepted {
		k := key{comment.Source, comment.ContainerID}
		idx, ok := listingIndex[k]
		if !ok {
			// No known container for this comment; it stays in the totals
			// but has no listing slot.
			continue
		}

		if comment.IsReply() {
			if parentIdx, ok := topLevel[k][comment.ParentID]; ok {
				parent := &listings[idx].Comments[parentIdx]
				parent.Replies = append(parent.Replies, comment)
				continue
			}
		}

		listings[idx].Comments = append(listings[idx].Comments, comment)
		if comment.ID != "" && !comment.IsReply() {
			topLevel[k][comment.ID] = len(listings[idx].Comments) - 1
		}
	}

	return listings
}
