package ai

import (
	"context"
	"fmt"
)

// AIProvider is the interface that all LLM providers must implement.
type AIProvider interface {
	// SuggestVariants generates up to n alternate phrasings of the query,
	// suitable for widening search coverage on video and discussion
	// platforms. The original query is never included in the result.
	SuggestVariants(ctx context.Context, query string, n int) ([]string, error)

	// RelatedQueries generates up to n adjacent topics a user researching
	// the query might also want to collect comments about.
	RelatedQueries(ctx context.Context, query string, n int) ([]string, error)
}

// NewProvider creates the appropriate provider based on config.
func NewProvider(cfg ProviderConfig) (AIProvider, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
