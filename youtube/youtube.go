// ABOUTME: YouTube transcript source: video ID extraction and transcript/title fetching.
// ABOUTME: Uses the public oembed and timedtext endpoints; no API key required.
package youtube

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrNoTranscript indicates the video has no captions in any requested language.
var ErrNoTranscript = errors.New("no transcript available")

// Transcript holds a video's full transcript text plus metadata.
type Transcript struct {
	VideoID  string `json:"video_id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Text     string `json:"transcript"`
	Language string `json:"language"`
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?(?:.*&)?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

var bareVideoID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ExtractVideoID pulls the 11-character video ID out of a YouTube URL.
// Bare 11-character IDs are accepted as-is. Returns an error when no ID can
// be recognized.
func ExtractVideoID(url string) (string, error) {
	for _, pat := range videoIDPatterns {
		if m := pat.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	if bareVideoID.MatchString(url) {
		return url, nil
	}
	return "", fmt.Errorf("could not extract video ID from %q", url)
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Client fetches transcripts and titles from YouTube's public endpoints.
type Client struct {
	httpClient   *http.Client
	oembedURL    string
	timedtextURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithOembedURL overrides the oembed endpoint (tests).
func WithOembedURL(u string) Option {
	return func(c *Client) { c.oembedURL = u }
}

// WithTimedtextURL overrides the timedtext endpoint (tests).
func WithTimedtextURL(u string) Option {
	return func(c *Client) { c.timedtextURL = u }
}

// NewClient creates a Client with a 30-second request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		oembedURL:    "https://www.youtube.com/oembed",
		timedtextURL: "https://www.youtube.com/api/timedtext",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SaveTranscript writes the transcript as <videoID>.txt under dir with a
// small metadata header, creating dir if needed.
func SaveTranscript(dir string, t *Transcript) (string, error) {
	if t.VideoID == "" || t.Text == "" {
		return "", fmt.Errorf("transcript is missing video ID or text")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating transcripts directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", t.Title)
	fmt.Fprintf(&b, "URL: %s\n", t.URL)
	fmt.Fprintf(&b, "Language: %s\n", t.Language)
	b.WriteString(strings.Repeat("=", 30) + "\n\n")
	b.WriteString(t.Text)

	path := filepath.Join(dir, t.VideoID+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing transcript: %w", err)
	}
	return path, nil
}
