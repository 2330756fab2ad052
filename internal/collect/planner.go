package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hoanghai1803/murmur/internal/models"
)

// ErrVariantsExhausted is returned by Planner.Next when both the suggestion
// service and the fallback generator have nothing left to offer. It is a
// normal terminal condition for the collection loop, not a failure.
var ErrVariantsExhausted = errors.New("query variants exhausted")

// Suggester produces alternate phrasings of a query. ai.AIProvider satisfies
// it; a nil Suggester is legal and skips straight to the fallback templates.
type Suggester interface {
	SuggestVariants(ctx context.Context, query string, n int) ([]string, error)
}

// fallbackTemplates are the deterministic query qualifiers used when the
// suggestion service is unavailable or runs dry. Each is consumed at most
// once per session.
var fallbackTemplates = []string{
	"%s reviews",
	"%s opinions",
	"%s discussion",
	"%s experience",
	"%s honest review",
	"best %s",
}

// Variant is one query phrasing issued by the Planner.
type Variant struct {
	Text   string
	Origin models.VariantOrigin
	Index  int
}

// Planner turns one user query into an ordered, deduplicated sequence of
// query variants: the original first, then AI suggestions, then deterministic
// fallbacks. A variant string (after normalization) is never issued twice
// within one session.
type Planner struct {
	query     string
	suggester Suggester
	perRefill int

	issued    map[string]struct{} // normalized variant strings already handed out
	queue     []string            // pending suggested variants
	fallbacks []string
	index     int
	started   bool
	noRefill  bool // suggester failed or ran dry; don't ask again
}

// NewPlanner creates a Planner for the given query. perRefill is how many
// suggestions to request from the suggester at a time.
func NewPlanner(query string, suggester Suggester, perRefill int) *Planner {
	if perRefill <= 0 {
		perRefill = 3
	}

	fallbacks := make([]string, 0, len(fallbackTemplates))
	for _, tmpl := range fallbackTemplates {
		fallbacks = append(fallbacks, fmt.Sprintf(tmpl, query))
	}

	return &Planner{
		query:     query,
		suggester: suggester,
		perRefill: perRefill,
		issued:    make(map[string]struct{}),
		fallbacks: fallbacks,
	}
}

// Next returns the next variant to try. The first call always returns the
// original query. Suggestion service failures are absorbed: the planner logs
// them and moves on to the fallback templates. When everything is exhausted
// it returns ErrVariantsExhausted.
func (p *Planner) Next(ctx context.Context) (Variant, error) {
	if !p.started {
		p.started = true
		p.issued[normalize(p.query)] = struct{}{}
		return p.issue(p.query, models.OriginOriginal), nil
	}

	if len(p.queue) == 0 {
		p.refill(ctx)
	}

	if len(p.queue) > 0 {
		text := p.queue[0]
		p.queue = p.queue[1:]
		return p.issue(text, models.OriginSuggested), nil
	}

	for len(p.fallbacks) > 0 {
		text := p.fallbacks[0]
		p.fallbacks = p.fallbacks[1:]
		norm := normalize(text)
		if _, dup := p.issued[norm]; dup {
			continue
		}
		p.issued[norm] = struct{}{}
		return p.issue(text, models.OriginFallback), nil
	}

	return Variant{}, ErrVariantsExhausted
}

// refill asks the suggester for a fresh batch of variants, discarding any
// whose normalized form was already issued. A failure or an all-duplicate
// batch stops further refills so the session always makes forward progress.
func (p *Planner) refill(ctx context.Context) {
	if p.suggester == nil || p.noRefill {
		return
	}

	suggestions, err := p.suggester.SuggestVariants(ctx, p.query, p.perRefill)
	if err != nil {
		slog.Warn("suggestion service unavailable, falling back to query templates",
			"query", p.query, "error", err)
		p.noRefill = true
		return
	}

	for _, s := range suggestions {
		norm := normalize(s)
		if norm == "" {
			continue
		}
		if _, dup := p.issued[norm]; dup {
			continue
		}
		p.issued[norm] = struct{}{}
		p.queue = append(p.queue, s)
	}

	if len(p.queue) == 0 {
		p.noRefill = true
	}
}

func (p *Planner) issue(text string, origin models.VariantOrigin) Variant {
	v := Variant{Text: text, Origin: origin, Index: p.index}
	p.index++
	return v
}
