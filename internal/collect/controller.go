package collect

import (
	"context"
	"log/slog"
	"time"

	"github.com/hoanghai1803/murmur/internal/models"
)

// Config holds the collection loop budgets and per-round fetch limits.
type Config struct {
	TargetComments int // minimum unique comments to declare success
	MaxAttempts    int
	StallAttempts  int // give up after this many consecutive zero-gain attempts
	RoundTimeout   time.Duration
	SessionTimeout time.Duration
	Suggestions    int // variants requested per planner refill

	MaxContainers           int // base per-source search width
	MaxCommentsPerContainer int // base per-container comment cap
	FetchWorkers            int
}

// Per-attempt escalation of the fetch limits: later attempts search wider
// and pull deeper, mirroring the usual pattern of retrying with a bigger net.
const (
	containerStep = 10
	commentStep   = 30
)

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.TargetComments <= 0 {
		cfg.TargetComments = 500
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.StallAttempts <= 0 {
		cfg.StallAttempts = 2
	}
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = 180 * time.Second
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 600 * time.Second
	}
	if cfg.Suggestions <= 0 {
		cfg.Suggestions = 3
	}
	if cfg.MaxContainers <= 0 {
		cfg.MaxContainers = 20
	}
	if cfg.MaxCommentsPerContainer <= 0 {
		cfg.MaxCommentsPerContainer = 150
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = 4
	}
	return cfg
}

// Outcome is the terminal state of a collection session.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeGaveUp    Outcome = "gave_up"
	OutcomeTimedOut  Outcome = "timed_out"
)

// state is one step of the controller's attempt loop.
type state int

const (
	statePlanning state = iota
	stateDispatching
	stateMerging
	stateDeciding
)

// Summary is everything a session accumulated, handed to the aggregator at
// loop exit. Terminal states never discard prior work: a timed-out or
// given-up session still carries every comment collected so far.
type Summary struct {
	Query          string
	Outcome        Outcome
	Target         int
	TargetAchieved bool

	Containers []models.Container // first-seen order across attempts
	Accepted   []models.Comment   // unique comments, merge order
	RawTotal   int                // every comment that entered the merge
	RawReplies int                // raw entries carrying a parent reference
	Duplicates int

	Attempts []models.AttemptRecord
	Elapsed  time.Duration
}

// Controller owns the attempt loop: it holds the fingerprint set and
// accumulated totals, and decides after each round whether another attempt
// is worth making. Attempts are strictly sequential, so the fingerprint set
// has a single writer and needs no locking.
type Controller struct {
	cfg        Config
	dispatcher *Dispatcher
	suggester  Suggester
}

// NewController creates a Controller over the given collectors. The
// collector order fixes merge order for every round. suggester may be nil.
func NewController(cfg Config, collectors []Collector, suggester Suggester) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:        cfg,
		dispatcher: NewDispatcher(collectors, cfg.FetchWorkers),
		suggester:  suggester,
	}
}

// Run executes one collection session for the query and always returns a
// Summary, partial or full. The session budget is enforced between attempts;
// the session context is the parent of every round context, so a mid-round
// expiry cancels outstanding fetches and shows up as that round's timeout.
func (c *Controller) Run(ctx context.Context, query string) *Summary {
	start := time.Now()

	sessionCtx, cancel := context.WithTimeout(ctx, c.cfg.SessionTimeout)
	defer cancel()

	planner := NewPlanner(query, c.suggester, c.cfg.Suggestions)
	seen := make(map[string]struct{})
	haveContainer := make(map[string]struct{})

	sum := &Summary{Query: query, Target: c.cfg.TargetComments}

	var (
		st           = statePlanning
		variant      Variant
		results      []SourceResult
		attempt      int
		attemptStart time.Time
		stalled      int // consecutive attempts with zero new unique comments
	)

	for {
		switch st {
		case statePlanning:
			v, err := planner.Next(sessionCtx)
			if err != nil {
				// Variants exhausted: a normal way to stop, not a failure.
				slog.Info("query variants exhausted", "query", query, "attempts", attempt)
				return c.finish(sum, OutcomeGaveUp, start)
			}
			variant = v
			attempt++
			attemptStart = time.Now()
			st = stateDispatching

		case stateDispatching:
			deadline := min(c.cfg.RoundTimeout, c.cfg.SessionTimeout-time.Since(start))
			limits := c.limitsFor(attempt)
			slog.Info("dispatching round",
				"attempt", attempt, "variant", variant.Text, "origin", variant.Origin,
				"containers", limits.Containers, "comments_per_container", limits.CommentsPerContainer)
			results = c.dispatcher.RunRound(sessionCtx, variant.Text, limits, deadline)
			st = stateMerging

		case stateMerging:
			c.mergeRound(sum, variant, attempt, attemptStart, results, &stalled, seen, haveContainer)
			st = stateDeciding

		case stateDeciding:
			switch {
			case len(sum.Accepted) >= c.cfg.TargetComments:
				return c.finish(sum, OutcomeSucceeded, start)
			case attempt >= c.cfg.MaxAttempts:
				slog.Info("attempt budget exhausted", "query", query, "unique", len(sum.Accepted))
				return c.finish(sum, OutcomeGaveUp, start)
			case ctx.Err() != nil || time.Since(start) >= c.cfg.SessionTimeout:
				slog.Warn("session budget exhausted", "query", query, "unique", len(sum.Accepted))
				return c.finish(sum, OutcomeTimedOut, start)
			case stalled >= c.cfg.StallAttempts:
				slog.Info("diminishing returns, stopping early",
					"query", query, "stalled_attempts", stalled, "unique", len(sum.Accepted))
				return c.finish(sum, OutcomeGaveUp, start)
			default:
				st = statePlanning
			}
		}
	}
}

// mergeRound folds one round's buffered results into the running state and
// records the attempt. Results arrive in fixed source order, so
// first-occurrence-wins deduplication is deterministic.
func (c *Controller) mergeRound(
	sum *Summary,
	variant Variant,
	attempt int,
	attemptStart time.Time,
	results []SourceResult,
	stalled *int,
	seen map[string]struct{},
	haveContainer map[string]struct{},
) {
	record := models.AttemptRecord{
		Attempt: attempt,
		Variant: variant.Text,
		Origin:  variant.Origin,
	}

	for _, res := range results {
		sa := models.SourceAttempt{
			Source:     res.Source,
			Containers: len(res.Containers),
			Comments:   len(res.Comments),
		}
		if res.Err != nil {
			sa.Error = res.Err.Error()
		}
		record.Sources = append(record.Sources, sa)

		for _, container := range res.Containers {
			key := string(container.Source) + "/" + container.ID
			if _, ok := haveContainer[key]; ok {
				continue
			}
			haveContainer[key] = struct{}{}
			sum.Containers = append(sum.Containers, container)
		}

		sum.RawTotal += len(res.Comments)
		for _, comment := range res.Comments {
			if comment.IsReply() {
				sum.RawReplies++
			}
		}

		accepted, duplicates := Merge(seen, res.Comments)
		sum.Accepted = append(sum.Accepted, accepted...)
		sum.Duplicates += duplicates
		record.NewUnique += len(accepted)
		record.Duplicates += duplicates
	}

	record.ElapsedMS = time.Since(attemptStart).Milliseconds()
	sum.Attempts = append(sum.Attempts, record)

	if record.NewUnique == 0 {
		*stalled++
	} else {
		*stalled = 0
	}

	slog.Info("merged round",
		"attempt", attempt, "new_unique", record.NewUnique,
		"duplicates", record.Duplicates, "total_unique", len(sum.Accepted))
}

// limitsFor widens the fetch limits on later attempts.
func (c *Controller) limitsFor(attempt int) Limits {
	return Limits{
		Containers:           c.cfg.MaxContainers + (attempt-1)*containerStep,
		CommentsPerContainer: c.cfg.MaxCommentsPerContainer + (attempt-1)*commentStep,
	}
}

func (c *Controller) finish(sum *Summary, outcome Outcome, start time.Time) *Summary {
	sum.Outcome = outcome
	sum.TargetAchieved = len(sum.Accepted) >= sum.Target
	sum.Elapsed = time.Since(start)
	return sum
}
