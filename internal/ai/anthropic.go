package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Compile-time interface check.
var _ AIProvider = (*AnthropicProvider)(nil)

const anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicProvider implements AIProvider using the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey string
	model  string
	client *http.Client
}

// NewAnthropicProvider creates an AnthropicProvider with a 60-second timeout
// HTTP client.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// anthropicRequest is the request body for the Anthropic Messages API.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

// anthropicMessage is a single message in the Anthropic request.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response body from the Anthropic Messages API.
type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SuggestVariants generates alternate phrasings of the query using the
// Anthropic Messages API.
func (p *AnthropicProvider) SuggestVariants(ctx context.Context, query string, n int) ([]string, error) {
	systemPrompt, userPrompt := VariantsPrompt(query, n)

	text, err := p.callAPI(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("anthropic suggest-variants: %w", err)
	}

	variants, err := parseSuggestions(text, n)
	if err != nil {
		return nil, fmt.Errorf("anthropic suggest-variants: %w", err)
	}
	return variants, nil
}

// RelatedQueries generates adjacent research topics using the Anthropic
// Messages API.
func (p *AnthropicProvider) RelatedQueries(ctx context.Context, query string, n int) ([]string, error) {
	systemPrompt, userPrompt := RelatedPrompt(query, n)

	text, err := p.callAPI(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("anthropic related-queries: %w", err)
	}

	related, err := parseSuggestions(text, n)
	if err != nil {
		return nil, fmt.Errorf("anthropic related-queries: %w", err)
	}
	return related, nil
}

// callAPI makes an HTTP request to the Anthropic Messages API and returns
// the text content from the first content block.
func (p *AnthropicProvider) callAPI(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     p.model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	slog.Debug("calling Anthropic API", "model", p.model)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("parsing response (status %d): %w", resp.StatusCode, err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response: no content blocks returned")
	}

	return apiResp.Content[0].Text, nil
}
