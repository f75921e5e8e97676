// ABOUTME: Chat completion and embedding client over the OpenAI-compatible API surface.
// ABOUTME: Supports custom base URLs (Groq, OpenRouter, local gateways) and streaming with a delta callback.
package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config holds the connection and generation settings for a Client.
type Config struct {
	APIKey  string
	BaseURL string // OpenAI-compatible endpoint, e.g. https://api.groq.com/openai/v1
	Model   string

	// Embeddings may live behind a different endpoint than chat. When
	// EmbeddingBaseURL is empty, the chat endpoint serves both.
	EmbeddingModel   string
	EmbeddingBaseURL string
	EmbeddingAPIKey  string

	Temperature float64
	MaxTokens   int64

	Retry RetryPolicy
}

// Client wraps one chat endpoint and one embeddings endpoint.
type Client struct {
	chat  openai.Client
	embed openai.Client
	cfg   Config
}

// New creates a Client. APIKey and Model are required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required (set GROQ_API_KEY or OPENAI_API_KEY)")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("LLM model is required")
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}

	chatOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		chatOpts = append(chatOpts, option.WithBaseURL(cfg.BaseURL))
	}

	embedKey := cfg.EmbeddingAPIKey
	if embedKey == "" {
		embedKey = cfg.APIKey
	}
	embedOpts := []option.RequestOption{option.WithAPIKey(embedKey)}
	switch {
	case cfg.EmbeddingBaseURL != "":
		embedOpts = append(embedOpts, option.WithBaseURL(cfg.EmbeddingBaseURL))
	case cfg.BaseURL != "":
		embedOpts = append(embedOpts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		chat:  openai.NewClient(chatOpts...),
		embed: openai.NewClient(embedOpts...),
		cfg:   cfg,
	}, nil
}

// Model returns the configured chat model name.
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) chatParams(system, user string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.cfg.MaxTokens)
	}
	params.Temperature = openai.Float(c.cfg.Temperature)
	return params
}

// Complete sends a chat completion and returns the full generated text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	var text string
	err := Retry(ctx, c.cfg.Retry, func() error {
		resp, err := c.chat.Chat.Completions.New(ctx, c.chatParams(system, user))
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("completion returned no choices")
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return text, nil
}

// Stream sends a chat completion in streaming mode, invoking onDelta for each
// text fragment as it arrives, and returns the accumulated full text.
// Streaming calls are not retried; a partial answer must not be replayed.
func (c *Client) Stream(ctx context.Context, system, user string, onDelta func(string)) (string, error) {
	stream := c.chat.Chat.Completions.NewStreaming(ctx, c.chatParams(system, user))

	var acc openai.ChatCompletionAccumulator
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" && onDelta != nil {
			onDelta(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("chat stream: %w", err)
	}
	if len(acc.Choices) == 0 {
		return "", fmt.Errorf("chat stream returned no choices")
	}
	return acc.Choices[0].Message.Content, nil
}

// Embed returns one embedding vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}

	var out [][]float32
	err := Retry(ctx, c.cfg.Retry, func() error {
		resp, err := c.embed.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: c.cfg.EmbeddingModel,
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(resp.Data), len(texts))
		}

		out = make([][]float32, len(resp.Data))
		for _, d := range resp.Data {
			vec := make([]float32, len(d.Embedding))
			for i, v := range d.Embedding {
				vec[i] = float32(v)
			}
			out[d.Index] = vec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
