package models

import "time"

// VariantOrigin tags where a query variant came from.
type VariantOrigin string

const (
	OriginOriginal  VariantOrigin = "original"
	OriginSuggested VariantOrigin = "ai-suggested"
	OriginFallback  VariantOrigin = "fallback"
)

// SourceAttempt records one source's outcome within a single attempt.
type SourceAttempt struct {
	Source     Source `json:"source"`
	Containers int    `json:"containers"`
	Comments   int    `json:"comments"`
	Error      string `json:"error,omitempty"`
}

// AttemptRecord is the audit record of one controller attempt: which variant
// ran, what each source returned, and how many unique comments it gained.
type AttemptRecord struct {
	Attempt    int             `json:"attempt"`
	Variant    string          `json:"variant"`
	Origin     VariantOrigin   `json:"origin"`
	Sources    []SourceAttempt `json:"sources"`
	NewUnique  int             `json:"new_unique"`
	Duplicates int             `json:"duplicates"`
	ElapsedMS  int64           `json:"elapsed_ms"`
}

// ContainerListing is one container in the final batch, carrying the unique
// comments attributed to it. The wire key for the collection is "videos" for
// compatibility; it holds both video and post entries.
type ContainerListing struct {
	Source   Source     `json:"source"`
	Video    *VideoInfo `json:"video_info,omitempty"`
	Post     *PostInfo  `json:"post_info,omitempty"`
	Comments []Comment  `json:"comments"`
}

// Batch is the terminal result of one collection run. Its JSON shape is the
// compatibility-sensitive response contract: field names must not change.
type Batch struct {
	BatchID            string             `json:"batch_id"`
	Query              string             `json:"query"`
	Timestamp          time.Time          `json:"timestamp"`
	Sources            []Source           `json:"sources"`
	TotalYouTubeVideos int                `json:"total_youtube_videos"`
	TotalRedditPosts   int                `json:"total_reddit_posts"`
	TotalComments      int                `json:"total_comments"`
	UniqueComments     int                `json:"unique_comments"`
	TotalReplies       int                `json:"total_replies"`
	GrandTotal         int                `json:"grand_total"`
	AttemptsMade       int                `json:"attempts_made"`
	TargetAchieved     bool               `json:"target_achieved"`
	SavedTo            string             `json:"saved_to"`
	LatencySeconds     float64            `json:"latency_seconds"`
	Videos             []ContainerListing `json:"videos"`
	Attempts           []AttemptRecord    `json:"attempts"`
	Warning            string             `json:"warning,omitempty"`
}

// BatchSummary is the lightweight header used when listing stored batches.
type BatchSummary struct {
	BatchID        string    `json:"batch_id"`
	Query          string    `json:"query"`
	Timestamp      time.Time `json:"timestamp"`
	UniqueComments int       `json:"unique_comments"`
	GrandTotal     int       `json:"grand_total"`
	AttemptsMade   int       `json:"attempts_made"`
	TargetAchieved bool      `json:"target_achieved"`
}
