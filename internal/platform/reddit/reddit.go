// Package reddit implements the discussion-platform collector on top of
// Reddit's public JSON API. No OAuth credentials are required; Reddit only
// asks for a descriptive User-Agent on every request.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hoanghai1803/murmur/internal/models"
	"github.com/hoanghai1803/murmur/internal/platform"
)

const (
	apiBase = "https://www.reddit.com"

	searchPageMax   = 100
	commentsPageMax = 100
	repliesPerEntry = 5 // direct replies kept per top-level comment
	minBodyChars    = 3

	maxBodyBytes = 8 << 20
)

// Client is a stateless Reddit JSON API client implementing the collector
// contract for the discussion platform.
type Client struct {
	baseURL   string
	userAgent string
	http      *platform.Client
}

// New creates a Client with the given User-Agent, paced at rps requests per
// second. Reddit throttles or blocks clients without a descriptive
// User-Agent, so userAgent must not be empty.
func New(userAgent string, rps float64) *Client {
	return &Client{
		baseURL:   apiBase,
		userAgent: userAgent,
		http:      platform.NewClient(30*time.Second, rps, userAgent),
	}
}

// Source returns the platform tag for this collector.
func (c *Client) Source() models.Source {
	return models.SourceReddit
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	Selftext    string  `json:"selftext"`
	NSFW        bool    `json:"over_18"`
	CreatedUTC  float64 `json:"created_utc"`
}

type searchListing struct {
	Data struct {
		Children []struct {
			Kind string   `json:"kind"`
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type commentData struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}

type commentListing struct {
	Data struct {
		Children []struct {
			Kind string      `json:"kind"`
			Data commentData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search returns up to limit posts matching the query via Reddit's
// relevance-sorted site search. NSFW posts are skipped.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.Container, error) {
	if limit <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "relevance")
	params.Set("type", "link")
	params.Set("limit", strconv.Itoa(min(limit, searchPageMax)))
	params.Set("raw_json", "1")

	body, err := c.get(ctx, "search", c.baseURL+"/search.json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var sl searchListing
	if err := json.Unmarshal(body, &sl); err != nil {
		return nil, &platform.Error{Source: models.SourceReddit, Kind: platform.KindMalformed, Op: "search", Err: err}
	}

	containers := make([]models.Container, 0, len(sl.Data.Children))
	for _, child := range sl.Data.Children {
		post := child.Data
		if child.Kind != "t3" || post.ID == "" || post.NSFW {
			continue
		}
		containers = append(containers, models.Container{
			Source: models.SourceReddit,
			ID:     post.ID,
			Title:  post.Title,
			Post: &models.PostInfo{
				PostID:      post.ID,
				Title:       post.Title,
				Subreddit:   post.Subreddit,
				Author:      displayAuthor(post.Author),
				Score:       post.Score,
				NumComments: post.NumComments,
				URL:         c.baseURL + post.Permalink,
			},
		})
		if len(containers) == limit {
			break
		}
	}
	return containers, nil
}

// FetchComments returns up to limit top-level comments from the post, with
// up to 5 direct replies each flattened after their parent. Deleted and
// removed comments are skipped, as are bodies too short to carry an opinion
// and comments with no term overlap with the query that found the post.
func (c *Client) FetchComments(ctx context.Context, container *models.Container, limit int) ([]models.Comment, error) {
	if limit <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("sort", "top")
	params.Set("depth", "2")
	params.Set("limit", strconv.Itoa(min(limit, commentsPageMax)))
	params.Set("raw_json", "1")

	body, err := c.get(ctx, "comments", c.baseURL+"/comments/"+container.ID+".json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	// The article endpoint returns a two-element array: the post listing,
	// then the comment tree.
	var pages []json.RawMessage
	if err := json.Unmarshal(body, &pages); err != nil || len(pages) < 2 {
		if err == nil {
			err = fmt.Errorf("expected 2 listings, got %d", len(pages))
		}
		return nil, &platform.Error{Source: models.SourceReddit, Kind: platform.KindMalformed, Op: "comments", Err: err}
	}

	var cl commentListing
	if err := json.Unmarshal(pages[1], &cl); err != nil {
		return nil, &platform.Error{Source: models.SourceReddit, Kind: platform.KindMalformed, Op: "comments", Err: err}
	}

	terms := queryTerms(container.Title)

	var (
		comments []models.Comment
		topLevel int
	)
	for _, child := range cl.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		entry := child.Data
		if !usableBody(entry.Author, entry.Body) || !relevantBody(entry.Body, terms) {
			continue
		}

		replies := directReplies(entry.Replies)
		comments = append(comments, models.Comment{
			Source:      models.SourceReddit,
			ContainerID: container.ID,
			ID:          entry.ID,
			Author:      displayAuthor(entry.Author),
			Text:        entry.Body,
			Likes:       entry.Score,
			ReplyCount:  len(replies),
			PublishedAt: formatCreated(entry.CreatedUTC),
		})
		topLevel++

		for _, reply := range replies {
			comments = append(comments, models.Comment{
				Source:      models.SourceReddit,
				ContainerID: container.ID,
				ID:          reply.ID,
				ParentID:    entry.ID,
				Author:      displayAuthor(reply.Author),
				Text:        reply.Body,
				Likes:       reply.Score,
				PublishedAt: formatCreated(reply.CreatedUTC),
			})
		}

		if topLevel >= limit {
			break
		}
	}
	return comments, nil
}

// directReplies extracts up to repliesPerEntry usable direct replies from a
// comment's replies field, which is either a nested listing or an empty
// string.
func directReplies(raw json.RawMessage) []commentData {
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var rl commentListing
	if err := json.Unmarshal(raw, &rl); err != nil {
		return nil
	}

	var replies []commentData
	for _, child := range rl.Data.Children {
		if child.Kind != "t1" || !usableBody(child.Data.Author, child.Data.Body) {
			continue
		}
		replies = append(replies, child.Data)
		if len(replies) == repliesPerEntry {
			break
		}
	}
	return replies
}

// get performs one API request and maps failures onto the platform error
// taxonomy. Reddit reports throttling as HTTP 429.
func (c *Client) get(ctx context.Context, op, rawURL string) ([]byte, error) {
	resp, err := c.http.Get(ctx, rawURL)
	if err != nil {
		return nil, &platform.Error{Source: models.SourceReddit, Kind: platform.TransportKind(err), Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &platform.Error{Source: models.SourceReddit, Kind: platform.TransportKind(err), Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &platform.Error{
			Source: models.SourceReddit, Kind: platform.KindQuota, Op: op,
			Err: fmt.Errorf("status %d", resp.StatusCode),
		}
	default:
		return nil, &platform.Error{
			Source: models.SourceReddit, Kind: platform.KindNetwork, Op: op,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
}

// usableBody reports whether a comment carries displayable content: present,
// not deleted or removed, and long enough to mean something.
func usableBody(author, body string) bool {
	if body == "[deleted]" || body == "[removed]" || author == "[deleted]" {
		return false
	}
	return len(strings.TrimSpace(body)) >= minBodyChars
}

// displayAuthor normalizes missing authors the way the platform UI does.
func displayAuthor(author string) string {
	if author == "" {
		return "Anonymous"
	}
	return author
}

// queryTerms splits a post title into lowercase terms for the comment
// relevance check. For a single term longer than 3 characters its 4-char
// prefix is added, so inflected forms still match.
func queryTerms(query string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		terms[w] = true
	}
	if len(terms) == 1 {
		for t := range terms {
			if len(t) > 3 {
				terms[t[:4]] = true
			}
		}
	}
	return terms
}

// relevantBody reports whether a comment body shares enough terms with the
// query: at least half of them for multi-term queries, at least one
// otherwise. An empty term set accepts everything.
func relevantBody(body string, terms map[string]bool) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(body)
	matching := 0
	for t := range terms {
		if strings.Contains(lower, t) {
			matching++
		}
	}
	if len(terms) > 1 {
		return matching >= max(1, len(terms)/2)
	}
	return matching > 0
}

// formatCreated renders a Unix epoch as RFC 3339, or empty when absent.
func formatCreated(epoch float64) string {
	if epoch <= 0 {
		return ""
	}
	return time.Unix(int64(epoch), 0).UTC().Format(time.RFC3339)
}
