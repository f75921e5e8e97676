// ABOUTME: Orchestrator wiring transcript fetching, chunking, embedding, indexing, and answering.
// ABOUTME: Every surface (CLI, TUI, web) drives the pipeline through this package.
package chatbot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tubular-ai/tubular/chunk"
	"github.com/tubular-ai/tubular/index"
	"github.com/tubular-ai/tubular/rag"
	"github.com/tubular-ai/tubular/youtube"
)

// TranscriptSource fetches transcripts and titles for a video.
type TranscriptSource interface {
	FetchTranscript(ctx context.Context, videoID string, langs []string) (*youtube.Transcript, error)
}

// Embedder turns chunk texts into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Collection is the slice of the vector store the orchestrator drives.
type Collection interface {
	Add(ctx context.Context, meta index.VideoMeta, chunks []chunk.Chunk, embeddings [][]float32) (int, error)
	Stats(ctx context.Context) (index.Stats, error)
	DeleteVideo(ctx context.Context, videoID string) (int, error)
	Reset(ctx context.Context) error
}

// Answerer answers a question against the indexed corpus.
type Answerer interface {
	Ask(ctx context.Context, question string) (rag.Answer, error)
}

// AddResult reports the outcome of ingesting one video.
type AddResult struct {
	VideoID     string      `json:"video_id,omitempty"`
	URL         string      `json:"url,omitempty"`
	Title       string      `json:"title,omitempty"`
	ChunksAdded int         `json:"chunks_added"`
	Stats       chunk.Stats `json:"stats"`
	Err         error       `json:"-"`
}

// BatchResult summarizes a multi-video ingest.
type BatchResult struct {
	Results    []AddResult `json:"results"`
	Successful int         `json:"successful"`
	Total      int         `json:"total"`
}

// Chatbot orchestrates the ingest and question-answering pipeline.
type Chatbot struct {
	source        TranscriptSource
	splitter      *chunk.Splitter
	embedder      Embedder
	collection    Collection
	engine        Answerer
	transcriptDir string
	languages     []string
	log           *slog.Logger
}

// Options configures a Chatbot.
type Options struct {
	Source        TranscriptSource
	Splitter      *chunk.Splitter
	Embedder      Embedder
	Collection    Collection
	Engine        Answerer
	TranscriptDir string   // transcripts saved here when non-empty
	Languages     []string // transcript language preference order
	Logger        *slog.Logger
}

// New wires a Chatbot from its collaborators.
func New(opts Options) (*Chatbot, error) {
	if opts.Source == nil || opts.Splitter == nil || opts.Embedder == nil ||
		opts.Collection == nil || opts.Engine == nil {
		return nil, fmt.Errorf("chatbot: all collaborators are required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	langs := opts.Languages
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	return &Chatbot{
		source:        opts.Source,
		splitter:      opts.Splitter,
		embedder:      opts.Embedder,
		collection:    opts.Collection,
		engine:        opts.Engine,
		transcriptDir: opts.TranscriptDir,
		languages:     langs,
		log:           log,
	}, nil
}

// AddVideo ingests one video by URL or bare ID: fetch transcript, save it,
// split, embed, and index.
func (c *Chatbot) AddVideo(ctx context.Context, videoURL string) (AddResult, error) {
	videoID, err := youtube.ExtractVideoID(videoURL)
	if err != nil {
		return AddResult{URL: videoURL, Err: err}, err
	}

	c.log.Info("processing video", "video_id", videoID)

	transcript, err := c.source.FetchTranscript(ctx, videoID, c.languages)
	if err != nil {
		err = fmt.Errorf("fetch transcript for %s: %w", videoID, err)
		return AddResult{VideoID: videoID, URL: videoURL, Err: err}, err
	}

	if c.transcriptDir != "" {
		if _, err := youtube.SaveTranscript(c.transcriptDir, transcript); err != nil {
			c.log.Warn("could not save transcript", "video_id", videoID, "error", err)
		}
	}

	chunks, err := c.splitter.Split(transcript.Text)
	if err != nil {
		err = fmt.Errorf("split transcript for %s: %w", videoID, err)
		return AddResult{VideoID: videoID, URL: transcript.URL, Err: err}, err
	}
	stats := chunk.ComputeStats(chunks)
	c.log.Info("transcript chunked",
		"video_id", videoID,
		"chunks", stats.TotalChunks,
		"avg_size", stats.AvgChunkSize)

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		err = fmt.Errorf("embed chunks for %s: %w", videoID, err)
		return AddResult{VideoID: videoID, URL: transcript.URL, Err: err}, err
	}

	meta := index.VideoMeta{VideoID: videoID, URL: transcript.URL, Title: transcript.Title}
	added, err := c.collection.Add(ctx, meta, chunks, embeddings)
	if err != nil {
		err = fmt.Errorf("index chunks for %s: %w", videoID, err)
		return AddResult{VideoID: videoID, URL: transcript.URL, Err: err}, err
	}

	c.log.Info("video indexed", "video_id", videoID, "chunks_added", added)
	return AddResult{
		VideoID:     videoID,
		URL:         transcript.URL,
		Title:       transcript.Title,
		ChunksAdded: added,
		Stats:       stats,
	}, nil
}

// AddVideos ingests several videos, isolating per-video failures so one bad
// URL never aborts the batch.
func (c *Chatbot) AddVideos(ctx context.Context, videoURLs []string) BatchResult {
	batch := BatchResult{Total: len(videoURLs)}
	for i, url := range videoURLs {
		c.log.Info("processing batch video", "position", i+1, "total", len(videoURLs))
		result, err := c.AddVideo(ctx, url)
		if err != nil {
			c.log.Warn("video failed", "url", url, "error", err)
		} else {
			batch.Successful++
		}
		batch.Results = append(batch.Results, result)
	}
	c.log.Info("batch complete", "successful", batch.Successful, "total", batch.Total)
	return batch
}

// Ask answers a question against the indexed corpus.
func (c *Chatbot) Ask(ctx context.Context, question string) (rag.Answer, error) {
	return c.engine.Ask(ctx, question)
}

// Stats reports knowledge base contents.
func (c *Chatbot) Stats(ctx context.Context) (index.Stats, error) {
	return c.collection.Stats(ctx)
}

// DeleteVideo removes a video's chunks from the index.
func (c *Chatbot) DeleteVideo(ctx context.Context, videoID string) (int, error) {
	return c.collection.DeleteVideo(ctx, videoID)
}

// Reset clears the entire knowledge base.
func (c *Chatbot) Reset(ctx context.Context) error {
	return c.collection.Reset(ctx)
}
