// ABOUTME: Retrieval-augmented answer generation over the indexed transcript chunks.
// ABOUTME: Embeds the question, retrieves nearest chunks, and prompts the LLM with formatted context.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/tubular-ai/tubular/index"
)

const systemPromptTemplate = `You are a helpful AI assistant that answers questions based on YouTube video transcripts.

Instructions:
- Use the provided context from video transcripts to answer questions
- If the answer is not in the context, say "I don't have enough information from the video transcripts to answer that"
- Be concise but informative
- If relevant, mention which video the information comes from
- Maintain a friendly and conversational tone

Context from video transcripts:
%s
`

// Canned answers for the two cases where retrieval cannot help.
const (
	AnswerNoVideos  = "No video transcripts have been loaded yet. Please add some YouTube videos first."
	AnswerNoContext = "I couldn't find relevant information in the video transcripts to answer your question."
)

const previewLen = 200

// Completer generates a chat completion from a system and user message.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Embedder turns a query string into an embedding vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the slice of the vector collection the engine needs.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]index.Result, error)
	Count(ctx context.Context) (int, error)
}

// Source describes one retrieved chunk backing an answer.
type Source struct {
	Number     int     `json:"source_number"`
	VideoID    string  `json:"video_id"`
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
	Preview    string  `json:"text_preview"`
}

// Answer is a generated answer with its supporting sources.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Engine ties the LLM and the vector index together.
type Engine struct {
	llm      Completer
	embedder Embedder
	idx      Searcher
	topK     int
}

// New builds an engine retrieving topK chunks per question.
func New(llm Completer, embedder Embedder, idx Searcher, topK int) (*Engine, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	return &Engine{llm: llm, embedder: embedder, idx: idx, topK: topK}, nil
}

// Retrieve embeds the question and returns the formatted context block along
// with the raw hits. An empty context string means nothing relevant was found.
func (e *Engine) Retrieve(ctx context.Context, question string) (string, []index.Result, error) {
	vec, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := e.idx.Search(ctx, vec, e.topK)
	if err != nil {
		return "", nil, fmt.Errorf("search index: %w", err)
	}
	if len(results) == 0 {
		return "", nil, nil
	}

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Source %d - Video: %s]\n%s", i+1, r.Meta.VideoID, r.Text)
	}
	return strings.Join(parts, "\n\n---\n\n"), results, nil
}

// Ask answers a question, returning canned responses when the index is empty
// or nothing relevant matched.
func (e *Engine) Ask(ctx context.Context, question string) (Answer, error) {
	n, err := e.idx.Count(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("count documents: %w", err)
	}
	if n == 0 {
		return Answer{Text: AnswerNoVideos}, nil
	}

	contextBlock, results, err := e.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, err
	}
	if contextBlock == "" {
		return Answer{Text: AnswerNoContext}, nil
	}

	text, err := e.llm.Complete(ctx, fmt.Sprintf(systemPromptTemplate, contextBlock), question)
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	return Answer{Text: text, Sources: sourcesFrom(results)}, nil
}

func sourcesFrom(results []index.Result) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		preview := r.Text
		if len(preview) > previewLen {
			preview = preview[:previewLen] + "..."
		}
		sources[i] = Source{
			Number:     i + 1,
			VideoID:    r.Meta.VideoID,
			URL:        r.Meta.URL,
			Similarity: r.Similarity,
			Preview:    preview,
		}
	}
	return sources
}

// FormatSources renders the sources footer used by the terminal surfaces.
func FormatSources(sources []Source) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Sources:\n")
	for _, s := range sources {
		fmt.Fprintf(&b, "\n%d. Video: %s (Similarity: %.2f%%)\n   URL: %s\n",
			s.Number, s.VideoID, s.Similarity*100, s.URL)
	}
	return b.String()
}
