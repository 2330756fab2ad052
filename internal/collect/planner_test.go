package collect

import (
	"context"
	"errors"
	"testing"

	"github.com/hoanghai1803/murmur/internal/models"
)

// fakeSuggester returns canned suggestion batches, one per call.
type fakeSuggester struct {
	batches [][]string
	err     error
	calls   int
}

func (f *fakeSuggester) SuggestVariants(ctx context.Context, query string, n int) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func TestPlanner_FirstVariantIsOriginal(t *testing.T) {
	p := NewPlanner("cats", &fakeSuggester{}, 3)

	v, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() unexpected error: %v", err)
	}
	if v.Text != "cats" {
		t.Errorf("v.Text = %q, want %q", v.Text, "cats")
	}
	if v.Origin != models.OriginOriginal {
		t.Errorf("v.Origin = %q, want %q", v.Origin, models.OriginOriginal)
	}
	if v.Index != 0 {
		t.Errorf("v.Index = %d, want 0", v.Index)
	}
}

func TestPlanner_DiscardsDuplicateSuggestions(t *testing.T) {
	sug := &fakeSuggester{batches: [][]string{{"cats", "cats", "cats opinions"}, {"CATS  opinions", "cat care"}}}
	p := NewPlanner("cats", sug, 3)

	ctx := context.Background()
	seen := make(map[string]bool)
	var suggested []Variant
	for i := 0; i < 10; i++ {
		v, err := p.Next(ctx)
		if errors.Is(err, ErrVariantsExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("Next() unexpected error: %v", err)
		}
		norm := normalize(v.Text)
		if seen[norm] {
			t.Fatalf("variant %q issued twice", v.Text)
		}
		seen[norm] = true
		if v.Origin == models.OriginSuggested {
			suggested = append(suggested, v)
		}
	}

	// "cats" duplicates the original; "CATS opinions" duplicates
	// "cats opinions". Only two distinct suggestions survive.
	if len(suggested) != 2 {
		t.Fatalf("got %d suggested variants, want 2: %+v", len(suggested), suggested)
	}
	if suggested[0].Text != "cats opinions" || suggested[1].Text != "cat care" {
		t.Errorf("suggested = [%q, %q], want [%q, %q]",
			suggested[0].Text, suggested[1].Text, "cats opinions", "cat care")
	}
}

func TestPlanner_FallbackOnSuggesterFailure(t *testing.T) {
	sug := &fakeSuggester{err: errors.New("quota exceeded")}
	p := NewPlanner("cats", sug, 3)

	ctx := context.Background()
	if _, err := p.Next(ctx); err != nil {
		t.Fatalf("Next() unexpected error: %v", err)
	}

	v, err := p.Next(ctx)
	if err != nil {
		t.Fatalf("Next() after suggester failure should fall back, got error: %v", err)
	}
	if v.Origin != models.OriginFallback {
		t.Errorf("v.Origin = %q, want %q", v.Origin, models.OriginFallback)
	}
	if v.Text != "cats reviews" {
		t.Errorf("v.Text = %q, want %q", v.Text, "cats reviews")
	}

	// The failed suggester is not asked again.
	p.Next(ctx)
	if sug.calls != 1 {
		t.Errorf("suggester called %d times, want 1", sug.calls)
	}
}

func TestPlanner_NilSuggesterDrainsFallbacks(t *testing.T) {
	p := NewPlanner("dogs", nil, 3)
	ctx := context.Background()

	var issued []Variant
	for {
		v, err := p.Next(ctx)
		if errors.Is(err, ErrVariantsExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("Next() unexpected error: %v", err)
		}
		issued = append(issued, v)
	}

	// Original plus the six fallback templates.
	if len(issued) != 1+len(fallbackTemplates) {
		t.Fatalf("got %d variants, want %d", len(issued), 1+len(fallbackTemplates))
	}
	for _, v := range issued[1:] {
		if v.Origin != models.OriginFallback {
			t.Errorf("variant %q origin = %q, want %q", v.Text, v.Origin, models.OriginFallback)
		}
	}

	// Exhaustion is sticky.
	if _, err := p.Next(ctx); !errors.Is(err, ErrVariantsExhausted) {
		t.Errorf("Next() after exhaustion = %v, want ErrVariantsExhausted", err)
	}
}

func TestPlanner_IndexesAreSequential(t *testing.T) {
	sug := &fakeSuggester{batches: [][]string{{"a", "b"}}}
	p := NewPlanner("q", sug, 2)
	ctx := context.Background()

	for want := 0; want < 4; want++ {
		v, err := p.Next(ctx)
		if err != nil {
			t.Fatalf("Next() unexpected error: %v", err)
		}
		if v.Index != want {
			t.Errorf("v.Index = %d, want %d", v.Index, want)
		}
	}
}
