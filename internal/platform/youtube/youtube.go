// Package youtube implements the video-platform collector on top of the
// YouTube Data API v3. Search finds candidate videos for a query variant;
// FetchComments pages through each video's comment threads, flattening
// replies into the unified comment shape.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/hoanghai1803/murmur/internal/models"
	"github.com/hoanghai1803/murmur/internal/platform"
)

const (
	apiBase  = "https://www.googleapis.com/youtube/v3"
	watchURL = "https://www.youtube.com/watch?v="

	searchPageMax   = 50  // Data API cap for search.list maxResults
	commentsPageMax = 100 // Data API cap for commentThreads.list maxResults

	maxBodyBytes = 8 << 20
)

// errCommentsDisabled marks a video whose comment section is turned off.
// It never leaves this package: FetchComments maps it to an empty result.
var errCommentsDisabled = errors.New("comments disabled")

// Client is a stateless YouTube Data API client. It satisfies the collector
// contract: every failure comes back as a *platform.Error and never affects
// the sibling source.
type Client struct {
	apiKey  string
	baseURL string
	http    *platform.Client
}

// New creates a Client with the given API key, paced at rps requests per
// second.
func New(apiKey string, rps float64) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: apiBase,
		http:    platform.NewClient(30*time.Second, rps, "murmur/1.0"),
	}
}

// Source returns the platform tag for this collector.
func (c *Client) Source() models.Source {
	return models.SourceYouTube
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

type commentItem struct {
	ID      string `json:"id"`
	Snippet struct {
		AuthorDisplayName string `json:"authorDisplayName"`
		TextDisplay       string `json:"textDisplay"`
		LikeCount         int    `json:"likeCount"`
		PublishedAt       string `json:"publishedAt"`
	} `json:"snippet"`
}

type commentThreadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment commentItem `json:"topLevelComment"`
			TotalReplyCount int         `json:"totalReplyCount"`
		} `json:"snippet"`
		Replies struct {
			Comments []commentItem `json:"comments"`
		} `json:"replies"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// apiError is the Data API error envelope. The first reason distinguishes
// quota exhaustion from a video with comments disabled, both of which
// arrive as HTTP 403.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Search returns up to limit videos matching the query, ordered by relevance.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.Container, error) {
	if limit <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("maxResults", strconv.Itoa(min(limit, searchPageMax)))
	params.Set("key", c.apiKey)

	body, err := c.get(ctx, "search", c.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &platform.Error{Source: models.SourceYouTube, Kind: platform.KindMalformed, Op: "search", Err: err}
	}

	containers := make([]models.Container, 0, len(sr.Items))
	for _, item := range sr.Items {
		if item.ID.VideoID == "" {
			continue
		}
		containers = append(containers, models.Container{
			Source: models.SourceYouTube,
			ID:     item.ID.VideoID,
			Title:  item.Snippet.Title,
			Video: &models.VideoInfo{
				VideoID:     item.ID.VideoID,
				Title:       item.Snippet.Title,
				Channel:     item.Snippet.ChannelTitle,
				PublishedAt: item.Snippet.PublishedAt,
				URL:         watchURL + item.ID.VideoID,
			},
		})
		if len(containers) == limit {
			break
		}
	}
	return containers, nil
}

// FetchComments pages through the video's comment threads until limit
// top-level comments are collected or the threads run out. Replies included
// in each thread are flattened after their parent with ParentID set. A video
// with comments disabled yields an empty result, not an error.
func (c *Client) FetchComments(ctx context.Context, container *models.Container, limit int) ([]models.Comment, error) {
	if limit <= 0 {
		return nil, nil
	}

	var (
		comments  []models.Comment
		topLevel  int
		pageToken string
	)

	for topLevel < limit {
		params := url.Values{}
		params.Set("part", "snippet,replies")
		params.Set("videoId", container.ID)
		params.Set("order", "relevance")
		params.Set("maxResults", strconv.Itoa(min(limit-topLevel, commentsPageMax)))
		params.Set("key", c.apiKey)
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		body, err := c.get(ctx, "comments", c.baseURL+"/commentThreads?"+params.Encode())
		if err != nil {
			if errors.Is(err, errCommentsDisabled) {
				return nil, nil
			}
			return comments, err
		}

		var tr commentThreadsResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			return comments, &platform.Error{Source: models.SourceYouTube, Kind: platform.KindMalformed, Op: "comments", Err: err}
		}

		for _, thread := range tr.Items {
			top := thread.Snippet.TopLevelComment
			comments = append(comments, models.Comment{
				Source:      models.SourceYouTube,
				ContainerID: container.ID,
				ID:          top.ID,
				Author:      top.Snippet.AuthorDisplayName,
				Text:        renderText(top.Snippet.TextDisplay),
				Likes:       top.Snippet.LikeCount,
				ReplyCount:  thread.Snippet.TotalReplyCount,
				PublishedAt: top.Snippet.PublishedAt,
			})
			topLevel++

			for _, reply := range thread.Replies.Comments {
				comments = append(comments, models.Comment{
					Source:      models.SourceYouTube,
					ContainerID: container.ID,
					ID:          reply.ID,
					ParentID:    top.ID,
					Author:      reply.Snippet.AuthorDisplayName,
					Text:        renderText(reply.Snippet.TextDisplay),
					Likes:       reply.Snippet.LikeCount,
					PublishedAt: reply.Snippet.PublishedAt,
				})
			}

			if topLevel >= limit {
				break
			}
		}

		if tr.NextPageToken == "" {
			break
		}
		pageToken = tr.NextPageToken
	}

	return comments, nil
}

// get performs one API request and maps failures onto the platform error
// taxonomy. HTTP 403 is ambiguous on this API: the error reason decides
// between quota exhaustion and a disabled comment section.
func (c *Client) get(ctx context.Context, op, rawURL string) ([]byte, error) {
	resp, err := c.http.Get(ctx, rawURL)
	if err != nil {
		return nil, &platform.Error{Source: models.SourceYouTube, Kind: platform.TransportKind(err), Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &platform.Error{Source: models.SourceYouTube, Kind: platform.TransportKind(err), Op: op, Err: err}
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	var ae apiError
	_ = json.Unmarshal(body, &ae)
	reason := ""
	if len(ae.Error.Errors) > 0 {
		reason = ae.Error.Errors[0].Reason
	}

	switch {
	case resp.StatusCode == http.StatusForbidden && reason == "commentsDisabled":
		return nil, errCommentsDisabled
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, &platform.Error{
			Source: models.SourceYouTube, Kind: platform.KindQuota, Op: op,
			Err: fmt.Errorf("status %d (%s): %s", resp.StatusCode, reason, ae.Error.Message),
		}
	default:
		return nil, &platform.Error{
			Source: models.SourceYouTube, Kind: platform.KindNetwork, Op: op,
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, ae.Error.Message),
		}
	}
}

// renderText converts an HTML comment body (the Data API returns textDisplay
// as HTML) into readable plain text. On conversion failure the original
// string is kept rather than dropping the comment.
func renderText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.TrimSpace(html)
	}
	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(text)
}
