package models

// Source identifies the platform a container or comment was collected from.
type Source string

const (
	SourceYouTube Source = "youtube"
	SourceReddit  Source = "reddit"
)

// Container is a source-specific grouping unit for comments: a video on the
// video platform, a post on the discussion platform. Exactly one of Video or
// Post is set, matching the Source tag.
type Container struct {
	Source Source     `json:"source"`
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Video  *VideoInfo `json:"video_info,omitempty"`
	Post   *PostInfo  `json:"post_info,omitempty"`
}

// VideoInfo holds video-platform metadata for a container.
type VideoInfo struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	PublishedAt string `json:"published_at,omitempty"`
	URL         string `json:"url"`
}

// PostInfo holds discussion-platform metadata for a container.
type PostInfo struct {
	PostID      string `json:"post_id"`
	Title       string `json:"title"`
	Subreddit   string `json:"subreddit"`
	Author      string `json:"author,omitempty"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
	URL         string `json:"url"`
}

// Comment is the unified comment shape across platforms. Collectors flatten
// nested replies into the same shape with ParentID set; the aggregator
// re-nests accepted replies under their parent via the Replies field when
// building the final listing. Comments are never mutated after creation.
type Comment struct {
	Source      Source    `json:"-"`
	ContainerID string    `json:"-"`
	ID          string    `json:"-"`
	ParentID    string    `json:"-"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	Likes       int       `json:"likes"`
	ReplyCount  int       `json:"reply_count"`
	PublishedAt string    `json:"published_at,omitempty"`
	Replies     []Comment `json:"replies,omitempty"`
}

// IsReply reports whether the comment was collected as a reply to another
// comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != ""
}
