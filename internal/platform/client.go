// Package platform provides the shared plumbing for the external comment
// platform clients: a typed error model and a rate-limited HTTP client with
// a fixed User-Agent. Each platform package builds its own request/response
// handling on top, the same way each AI provider owns its callAPI.
package platform

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultTimeout = 30 * time.Second

// Client is a rate-limited HTTP client shared by the platform packages.
// The limiter paces outbound requests; it holds no response state, so
// collectors built on it stay stateless across calls.
type Client struct {
	httpc     *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewClient creates a Client with the given request timeout, request pacing
// in requests per second, and User-Agent header value. An rps of 0 or less
// disables pacing.
func NewClient(timeout time.Duration, rps float64, userAgent string) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		httpc:     &http.Client{Timeout: timeout},
		limiter:   limiter,
		userAgent: userAgent,
	}
}

// Get issues a paced GET request with the client's User-Agent. The caller
// owns the response body and is responsible for status handling, since each
// platform reports quota and validity failures differently.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	return c.httpc.Do(req)
}
