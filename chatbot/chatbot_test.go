// ABOUTME: Tests for the ingest/ask orchestrator with fake collaborators.
// ABOUTME: Covers the full add pipeline, batch error isolation, and delegation methods.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tubular-ai/tubular/chunk"
	"github.com/tubular-ai/tubular/index"
	"github.com/tubular-ai/tubular/rag"
	"github.com/tubular-ai/tubular/youtube"
)

type fakeSource struct {
	transcripts map[string]string
}

func (f *fakeSource) FetchTranscript(_ context.Context, videoID string, _ []string) (*youtube.Transcript, error) {
	text, ok := f.transcripts[videoID]
	if !ok {
		return nil, youtube.ErrNoTranscript
	}
	return &youtube.Transcript{
		VideoID:  videoID,
		URL:      youtube.WatchURL(videoID),
		Title:    "title " + videoID,
		Text:     text,
		Language: "en",
	}, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

type fakeCollection struct {
	added    map[string]int
	deleted  []string
	resets   int
	addErr   error
	statsVal index.Stats
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{added: make(map[string]int)}
}

func (f *fakeCollection) Add(_ context.Context, meta index.VideoMeta, chunks []chunk.Chunk, embeddings [][]float32) (int, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("mismatched lengths")
	}
	f.added[meta.VideoID] += len(chunks)
	return len(chunks), nil
}

func (f *fakeCollection) Stats(context.Context) (index.Stats, error) { return f.statsVal, nil }

func (f *fakeCollection) DeleteVideo(_ context.Context, videoID string) (int, error) {
	f.deleted = append(f.deleted, videoID)
	return f.added[videoID], nil
}

func (f *fakeCollection) Reset(context.Context) error {
	f.resets++
	return nil
}

type fakeEngine struct {
	answer rag.Answer
}

func (f *fakeEngine) Ask(context.Context, string) (rag.Answer, error) { return f.answer, nil }

func newTestBot(t *testing.T, mutate func(*Options)) (*Chatbot, *fakeCollection) {
	t.Helper()
	splitter, err := chunk.NewSplitter(50, 10)
	if err != nil {
		t.Fatalf("NewSplitter: %v", err)
	}
	coll := newFakeCollection()
	opts := Options{
		Source: &fakeSource{transcripts: map[string]string{
			"aaaaaaaaaaa": strings.Repeat("the quick brown fox jumps over the lazy dog. ", 10),
		}},
		Splitter:   splitter,
		Embedder:   &fakeEmbedder{},
		Collection: coll,
		Engine:     &fakeEngine{answer: rag.Answer{Text: "hi"}},
	}
	if mutate != nil {
		mutate(&opts)
	}
	bot, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return bot, coll
}

func TestAddVideoPipeline(t *testing.T) {
	bot, coll := newTestBot(t, nil)

	result, err := bot.AddVideo(context.Background(), "https://www.youtube.com/watch?v=aaaaaaaaaaa")
	if err != nil {
		t.Fatalf("AddVideo: %v", err)
	}
	if result.VideoID != "aaaaaaaaaaa" {
		t.Errorf("video ID = %q", result.VideoID)
	}
	if result.ChunksAdded == 0 {
		t.Error("no chunks added")
	}
	if result.ChunksAdded != coll.added["aaaaaaaaaaa"] {
		t.Errorf("result reports %d chunks, collection has %d", result.ChunksAdded, coll.added["aaaaaaaaaaa"])
	}
	if result.Stats.TotalChunks != result.ChunksAdded {
		t.Errorf("stats chunks = %d, added = %d", result.Stats.TotalChunks, result.ChunksAdded)
	}
	if result.Title != "title aaaaaaaaaaa" {
		t.Errorf("title = %q", result.Title)
	}
}

func TestAddVideoSavesTranscript(t *testing.T) {
	dir := t.TempDir()
	bot, _ := newTestBot(t, func(o *Options) { o.TranscriptDir = dir })

	if _, err := bot.AddVideo(context.Background(), "aaaaaaaaaaa"); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "aaaaaaaaaaa.txt")); err != nil {
		t.Errorf("transcript file missing: %v", err)
	}
}

func TestAddVideoBadURL(t *testing.T) {
	bot, coll := newTestBot(t, nil)

	if _, err := bot.AddVideo(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error for unrecognizable URL")
	}
	if len(coll.added) != 0 {
		t.Errorf("collection modified on failure: %v", coll.added)
	}
}

func TestAddVideoNoTranscript(t *testing.T) {
	bot, _ := newTestBot(t, nil)

	_, err := bot.AddVideo(context.Background(), "bbbbbbbbbbb")
	if !errors.Is(err, youtube.ErrNoTranscript) {
		t.Fatalf("err = %v, want ErrNoTranscript", err)
	}
}

func TestAddVideoEmbedderFailure(t *testing.T) {
	bot, coll := newTestBot(t, func(o *Options) {
		o.Embedder = &fakeEmbedder{err: errors.New("embeddings down")}
	})

	if _, err := bot.AddVideo(context.Background(), "aaaaaaaaaaa"); err == nil {
		t.Fatal("expected embed error")
	}
	if len(coll.added) != 0 {
		t.Error("chunks indexed despite embed failure")
	}
}

func TestAddVideosIsolatesFailures(t *testing.T) {
	bot, coll := newTestBot(t, nil)

	batch := bot.AddVideos(context.Background(), []string{
		"aaaaaaaaaaa", // ok
		"bbbbbbbbbbb", // no transcript
		"garbage",     // unrecognizable
	})

	if batch.Total != 3 {
		t.Errorf("total = %d", batch.Total)
	}
	if batch.Successful != 1 {
		t.Errorf("successful = %d, want 1", batch.Successful)
	}
	if len(batch.Results) != 3 {
		t.Fatalf("got %d results", len(batch.Results))
	}
	if batch.Results[0].Err != nil {
		t.Errorf("first result errored: %v", batch.Results[0].Err)
	}
	if batch.Results[1].Err == nil || batch.Results[2].Err == nil {
		t.Error("failed videos should carry errors")
	}
	if coll.added["aaaaaaaaaaa"] == 0 {
		t.Error("successful video not indexed")
	}
}

func TestDelegation(t *testing.T) {
	bot, coll := newTestBot(t, func(o *Options) {
		o.Engine = &fakeEngine{answer: rag.Answer{Text: "42"}}
	})
	coll.statsVal = index.Stats{TotalDocuments: 7, UniqueVideos: 2}

	ans, err := bot.Ask(context.Background(), "q")
	if err != nil || ans.Text != "42" {
		t.Errorf("Ask = %+v, %v", ans, err)
	}

	stats, err := bot.Stats(context.Background())
	if err != nil || stats.TotalDocuments != 7 {
		t.Errorf("Stats = %+v, %v", stats, err)
	}

	if _, err := bot.DeleteVideo(context.Background(), "aaaaaaaaaaa"); err != nil {
		t.Errorf("DeleteVideo: %v", err)
	}
	if len(coll.deleted) != 1 {
		t.Errorf("deleted = %v", coll.deleted)
	}

	if err := bot.Reset(context.Background()); err != nil {
		t.Errorf("Reset: %v", err)
	}
	if coll.resets != 1 {
		t.Errorf("resets = %d", coll.resets)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}
