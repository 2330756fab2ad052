package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hoanghai1803/murmur/internal/models"
	"github.com/hoanghai1803/murmur/internal/platform"
)

func newTestClient(serverURL string) *Client {
	c := New("test-key", 1000)
	c.baseURL = serverURL
	return c
}

const searchBody = `{
	"items": [
		{
			"id": {"videoId": "vid-1"},
			"snippet": {"title": "first video", "channelTitle": "chan one", "publishedAt": "2026-01-02T03:04:05Z"}
		},
		{
			"id": {"videoId": ""},
			"snippet": {"title": "channel result, no video id"}
		},
		{
			"id": {"videoId": "vid-2"},
			"snippet": {"title": "second video", "channelTitle": "chan two", "publishedAt": "2026-01-03T00:00:00Z"}
		}
	]
}`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "cats" || q.Get("type") != "video" || q.Get("key") != "test-key" {
			t.Errorf("unexpected query params: %v", q)
		}
		w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	containers, err := newTestClient(srv.URL).Search(context.Background(), "cats", 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if len(containers) != 2 {
		t.Fatalf("got %d containers, want 2 (entries without a video id skipped)", len(containers))
	}
	first := containers[0]
	if first.ID != "vid-1" || first.Source != models.SourceYouTube {
		t.Errorf("containers[0] = %+v", first)
	}
	if first.Video == nil || first.Video.Channel != "chan one" {
		t.Errorf("video info not populated: %+v", first.Video)
	}
	if first.Video.URL != watchURL+"vid-1" {
		t.Errorf("video URL = %q, want %q", first.Video.URL, watchURL+"vid-1")
	}
}

func TestSearch_LimitApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	containers, err := newTestClient(srv.URL).Search(context.Background(), "cats", 1)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(containers) != 1 {
		t.Errorf("got %d containers, want 1", len(containers))
	}
}

const threadsPageOne = `{
	"items": [
		{
			"snippet": {
				"topLevelComment": {
					"id": "top-1",
					"snippet": {"authorDisplayName": "alice", "textDisplay": "great video", "likeCount": 10, "publishedAt": "2026-01-02T00:00:00Z"}
				},
				"totalReplyCount": 2
			},
			"replies": {
				"comments": [
					{"id": "rep-1", "snippet": {"authorDisplayName": "bob", "textDisplay": "agreed", "likeCount": 1}},
					{"id": "rep-2", "snippet": {"authorDisplayName": "carol", "textDisplay": "same here", "likeCount": 0}}
				]
			}
		}
	],
	"nextPageToken": "page-2"
}`

const threadsPageTwo = `{
	"items": [
		{
			"snippet": {
				"topLevelComment": {
					"id": "top-2",
					"snippet": {"authorDisplayName": "dave", "textDisplay": "meh", "likeCount": 0}
				},
				"totalReplyCount": 0
			}
		}
	]
}`

func TestFetchComments_PagingAndReplyFlattening(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/commentThreads" {
			t.Errorf("path = %q, want /commentThreads", r.URL.Path)
		}
		if r.URL.Query().Get("pageToken") == "page-2" {
			w.Write([]byte(threadsPageTwo))
			return
		}
		w.Write([]byte(threadsPageOne))
	}))
	defer srv.Close()

	container := &models.Container{Source: models.SourceYouTube, ID: "vid-1"}
	comments, err := newTestClient(srv.URL).FetchComments(context.Background(), container, 5)
	if err != nil {
		t.Fatalf("FetchComments() error: %v", err)
	}

	// 2 top-level comments across two pages plus 2 flattened replies.
	if len(comments) != 4 {
		t.Fatalf("got %d comments, want 4", len(comments))
	}

	top := comments[0]
	if top.ID != "top-1" || top.ParentID != "" || top.ReplyCount != 2 || top.Likes != 10 {
		t.Errorf("top comment = %+v", top)
	}
	reply := comments[1]
	if reply.ID != "rep-1" || reply.ParentID != "top-1" {
		t.Errorf("reply not attached to parent: %+v", reply)
	}
	if !reply.IsReply() {
		t.Error("reply.IsReply() = false, want true")
	}
	if comments[3].ID != "top-2" {
		t.Errorf("comments[3].ID = %q, want top-2 (second page)", comments[3].ID)
	}
}

func TestFetchComments_TopLevelLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(threadsPageOne))
	}))
	defer srv.Close()

	container := &models.Container{Source: models.SourceYouTube, ID: "vid-1"}
	comments, err := newTestClient(srv.URL).FetchComments(context.Background(), container, 1)
	if err != nil {
		t.Fatalf("FetchComments() error: %v", err)
	}

	// One top-level comment satisfies the limit; its replies still come
	// along, but no second page is fetched.
	topLevel := 0
	for _, c := range comments {
		if !c.IsReply() {
			topLevel++
		}
	}
	if topLevel != 1 {
		t.Errorf("got %d top-level comments, want 1", topLevel)
	}
}

func TestFetchComments_DisabledComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "disabled", "errors": [{"reason": "commentsDisabled"}]}}`))
	}))
	defer srv.Close()

	container := &models.Container{Source: models.SourceYouTube, ID: "vid-1"}
	comments, err := newTestClient(srv.URL).FetchComments(context.Background(), container, 5)
	if err != nil {
		t.Fatalf("FetchComments() on a disabled video should not error, got: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("got %d comments, want 0", len(comments))
	}
}

func TestQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "quota exceeded", "errors": [{"reason": "quotaExceeded"}]}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Search(context.Background(), "cats", 5)
	if err == nil {
		t.Fatal("Search() should fail on quota exhaustion")
	}

	pe, ok := platform.AsError(err)
	if !ok {
		t.Fatalf("error %v is not a platform error", err)
	}
	if pe.Kind != platform.KindQuota {
		t.Errorf("Kind = %q, want %q", pe.Kind, platform.KindQuota)
	}
	if pe.Source != models.SourceYouTube {
		t.Errorf("Source = %q, want %q", pe.Source, models.SourceYouTube)
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Search(context.Background(), "cats", 5)
	pe, ok := platform.AsError(err)
	if !ok || pe.Kind != platform.KindMalformed {
		t.Errorf("error = %v, want malformed platform error", err)
	}
}

func TestRenderText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "just words", want: "just words"},
		{name: "whitespace trimmed", input: "  spaced out  ", want: "spaced out"},
		{name: "html tags converted", input: "so <b>bold</b> of you", want: "so **bold** of you"},
		{name: "entities decoded", input: "cats &amp; dogs", want: "cats & dogs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderText(tt.input); got != tt.want {
				t.Errorf("renderText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
