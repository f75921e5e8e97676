// ABOUTME: Tests for the RAG engine using fake LLM, embedder, and index implementations.
// ABOUTME: Covers context formatting, canned answers, source extraction, and error paths.
package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tubular-ai/tubular/index"
)

type fakeLLM struct {
	lastSystem string
	lastUser   string
	reply      string
	err        error
}

func (f *fakeLLM) Complete(_ context.Context, system, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.reply, f.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

type fakeIndex struct {
	count   int
	results []index.Result
	err     error
}

func (f *fakeIndex) Search(context.Context, []float32, int) ([]index.Result, error) {
	return f.results, f.err
}

func (f *fakeIndex) Count(context.Context) (int, error) {
	return f.count, f.err
}

func hit(videoID, text string, sim float64) index.Result {
	return index.Result{
		Text:       text,
		Meta:       index.VideoMeta{VideoID: videoID, URL: "https://www.youtube.com/watch?v=" + videoID},
		Similarity: sim,
		Distance:   1 - sim,
	}
}

func TestAskEmptyIndex(t *testing.T) {
	e, err := New(&fakeLLM{}, &fakeEmbedder{vec: []float32{1}}, &fakeIndex{count: 0}, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ans, err := e.Ask(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != AnswerNoVideos {
		t.Errorf("answer = %q, want canned empty-index response", ans.Text)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("sources = %v, want none", ans.Sources)
	}
}

func TestAskNoRelevantContext(t *testing.T) {
	e, _ := New(&fakeLLM{}, &fakeEmbedder{vec: []float32{1}}, &fakeIndex{count: 5}, 4)

	ans, err := e.Ask(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != AnswerNoContext {
		t.Errorf("answer = %q, want canned no-context response", ans.Text)
	}
}

func TestAskFormatsContextAndSources(t *testing.T) {
	llm := &fakeLLM{reply: "the videos say hello"}
	idx := &fakeIndex{
		count: 2,
		results: []index.Result{
			hit("aaaaaaaaaaa", "first chunk", 0.91),
			hit("bbbbbbbbbbb", "second chunk", 0.72),
		},
	}
	e, _ := New(llm, &fakeEmbedder{vec: []float32{1}}, idx, 4)

	ans, err := e.Ask(context.Background(), "what do the videos say?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != "the videos say hello" {
		t.Errorf("answer = %q", ans.Text)
	}

	if !strings.Contains(llm.lastSystem, "[Source 1 - Video: aaaaaaaaaaa]\nfirst chunk") {
		t.Errorf("system prompt missing first source block:\n%s", llm.lastSystem)
	}
	if !strings.Contains(llm.lastSystem, "[Source 2 - Video: bbbbbbbbbbb]\nsecond chunk") {
		t.Errorf("system prompt missing second source block:\n%s", llm.lastSystem)
	}
	if !strings.Contains(llm.lastSystem, "\n\n---\n\n") {
		t.Errorf("system prompt missing block separator:\n%s", llm.lastSystem)
	}
	if llm.lastUser != "what do the videos say?" {
		t.Errorf("user message = %q", llm.lastUser)
	}

	if len(ans.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(ans.Sources))
	}
	s := ans.Sources[0]
	if s.Number != 1 || s.VideoID != "aaaaaaaaaaa" || s.Similarity != 0.91 {
		t.Errorf("first source = %+v", s)
	}
	if s.Preview != "first chunk" {
		t.Errorf("preview = %q", s.Preview)
	}
}

func TestSourcePreviewTruncated(t *testing.T) {
	long := strings.Repeat("a", 500)
	sources := sourcesFrom([]index.Result{hit("aaaaaaaaaaa", long, 0.5)})
	if got := sources[0].Preview; len(got) != previewLen+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("preview length = %d, want %d with ellipsis", len(got), previewLen+3)
	}
}

func TestAskEmbedderError(t *testing.T) {
	e, _ := New(&fakeLLM{}, &fakeEmbedder{err: errors.New("boom")}, &fakeIndex{count: 1}, 4)
	if _, err := e.Ask(context.Background(), "q"); err == nil {
		t.Fatal("expected error from embedder")
	}
}

func TestAskLLMError(t *testing.T) {
	idx := &fakeIndex{count: 1, results: []index.Result{hit("aaaaaaaaaaa", "x", 0.9)}}
	e, _ := New(&fakeLLM{err: errors.New("rate limited")}, &fakeEmbedder{vec: []float32{1}}, idx, 4)
	if _, err := e.Ask(context.Background(), "q"); err == nil {
		t.Fatal("expected error from LLM")
	}
}

func TestNewRejectsBadTopK(t *testing.T) {
	if _, err := New(&fakeLLM{}, &fakeEmbedder{}, &fakeIndex{}, 0); err == nil {
		t.Fatal("expected error for topK = 0")
	}
}

func TestFormatSources(t *testing.T) {
	if got := FormatSources(nil); got != "" {
		t.Errorf("FormatSources(nil) = %q", got)
	}

	out := FormatSources([]Source{{Number: 1, VideoID: "aaaaaaaaaaa", URL: "u", Similarity: 0.875}})
	if !strings.Contains(out, "1. Video: aaaaaaaaaaa (Similarity: 87.50%)") {
		t.Errorf("formatted sources = %q", out)
	}
}
