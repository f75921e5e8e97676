// ABOUTME: Transcript fetching against YouTube's timedtext API plus oembed title lookup.
// ABOUTME: Joins caption events into full transcript text; distinguishes "no captions" from transport errors.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// timedtextResponse is the raw json3 payload from the timedtext API.
type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

type timedtextEvent struct {
	StartMs    int64              `json:"tStartMs"`
	DurationMs int64              `json:"dDurationMs"`
	Segs       []timedtextSegment `json:"segs,omitempty"`
}

type timedtextSegment struct {
	UTF8 string `json:"utf8"`
}

// FetchTranscript retrieves the transcript for videoID, trying each language
// code in order. Returns ErrNoTranscript (wrapped) when none of the requested
// languages has captions.
func (c *Client) FetchTranscript(ctx context.Context, videoID string, langs []string) (*Transcript, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video ID is required")
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	var lastErr error
	for _, lang := range langs {
		text, err := c.fetchCaptions(ctx, videoID, lang)
		if err != nil {
			lastErr = err
			continue
		}

		return &Transcript{
			VideoID:  videoID,
			URL:      WatchURL(videoID),
			Title:    c.FetchTitle(ctx, videoID),
			Text:     text,
			Language: lang,
		}, nil
	}

	return nil, fmt.Errorf("video %s (languages %v): %w", videoID, langs, lastErr)
}

// fetchCaptions queries the timedtext endpoint for one language and joins the
// caption segments into a single text.
func (c *Client) fetchCaptions(ctx context.Context, videoID, lang string) (string, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", lang)
	params.Set("fmt", "json3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.timedtextURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("timedtext request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden:
		return "", fmt.Errorf("language %s: %w", lang, ErrNoTranscript)
	case http.StatusTooManyRequests:
		return "", fmt.Errorf("rate limited by YouTube")
	default:
		return "", fmt.Errorf("timedtext API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading timedtext response: %w", err)
	}

	// Videos without captions can also answer 200 with an empty body.
	if len(body) == 0 {
		return "", fmt.Errorf("language %s: %w", lang, ErrNoTranscript)
	}

	var tt timedtextResponse
	if err := json.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parsing timedtext response: %w", err)
	}

	var parts []string
	for _, event := range tt.Events {
		if len(event.Segs) == 0 {
			continue
		}
		var b strings.Builder
		for _, seg := range event.Segs {
			b.WriteString(seg.UTF8)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			parts = append(parts, s)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("language %s: %w", lang, ErrNoTranscript)
	}
	return strings.Join(parts, " "), nil
}

// FetchTitle looks up the video title via the oembed endpoint. On any failure
// it falls back to the video ID; a missing title never blocks ingestion.
func (c *Client) FetchTitle(ctx context.Context, videoID string) string {
	params := url.Values{}
	params.Set("url", WatchURL(videoID))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.oembedURL+"?"+params.Encode(), nil)
	if err != nil {
		return videoID
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("oembed title lookup failed", "video_id", videoID, "error", err)
		return videoID
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return videoID
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Title == "" {
		return videoID
	}
	return payload.Title
}
