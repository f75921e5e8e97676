// ABOUTME: Configuration for the tubular chatbot, loaded from environment variables
// ABOUTME: with an optional YAML overlay file; also mints the per-process run ID.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirroring the recognized configuration surface.
const (
	DefaultLLMModel       = "openai/gpt-oss-120b"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultBaseURL        = "https://api.groq.com/openai/v1"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 8192
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultTopK           = 4
	DefaultRetentionDays  = 7
	DefaultRetentionCount = 3
	DefaultRetentionMode  = "hybrid"

	// RunIDLayout is the timestamp format for run identifiers. Lexicographic
	// order over these IDs equals chronological order.
	RunIDLayout = "20060102_150405"
)

// Cleanup holds the retention policy knobs for run-directory garbage collection.
type Cleanup struct {
	Enabled        bool   `yaml:"enabled"`
	RetentionDays  int    `yaml:"retention_days"`
	RetentionCount int    `yaml:"retention_count"`
	RetentionMode  string `yaml:"retention_mode"`
	Schedule       string `yaml:"schedule"` // cron expression for server mode; empty disables
}

// Config is the full configuration for one tubular process.
type Config struct {
	APIKey           string  `yaml:"-"` // secrets never come from the YAML file
	BaseURL          string  `yaml:"base_url"`
	LLMModel         string  `yaml:"llm_model"`
	EmbeddingModel   string  `yaml:"embedding_model"`
	EmbeddingBaseURL string  `yaml:"embedding_base_url"`
	EmbeddingAPIKey  string  `yaml:"-"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int64   `yaml:"max_tokens"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`

	DataDir        string `yaml:"data_dir"`        // parent of the runs root and transcripts dir
	TranscriptsDir string `yaml:"transcripts_dir"` // default <DataDir>/transcripts
	LogFile        string `yaml:"log_file"`

	RunID string `yaml:"-"` // minted at startup, never configured

	Cleanup Cleanup `yaml:"cleanup"`
}

// NewRunID formats t as a run identifier (YYYYMMDD_HHMMSS).
func NewRunID(t time.Time) string {
	return t.Format(RunIDLayout)
}

// Load builds a Config from the environment, applying defaults and minting a
// fresh run ID. dataDir is the resolved data directory (flag or XDG default).
func Load(dataDir string) (*Config, error) {
	cfg := &Config{
		APIKey:           firstEnv("GROQ_API_KEY", "OPENAI_API_KEY"),
		BaseURL:          envOr("LLM_BASE_URL", DefaultBaseURL),
		LLMModel:         envOr("LLM_MODEL", DefaultLLMModel),
		EmbeddingModel:   envOr("EMBEDDING_MODEL", DefaultEmbeddingModel),
		EmbeddingBaseURL: os.Getenv("EMBEDDING_BASE_URL"),
		EmbeddingAPIKey:  firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY", "GROQ_API_KEY"),
		Temperature:      DefaultTemperature,
		MaxTokens:        DefaultMaxTokens,
		ChunkSize:        envInt("CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:     envInt("CHUNK_OVERLAP", DefaultChunkOverlap),
		TopK:             envInt("TOP_K_RESULTS", DefaultTopK),
		DataDir:          dataDir,
		RunID:            NewRunID(time.Now()),
		Cleanup: Cleanup{
			Enabled:        envBool("CLEANUP_ENABLED", true),
			RetentionDays:  envInt("CLEANUP_RETENTION_DAYS", DefaultRetentionDays),
			RetentionCount: envInt("CLEANUP_RETENTION_COUNT", DefaultRetentionCount),
			RetentionMode:  envOr("CLEANUP_RETENTION_MODE", DefaultRetentionMode),
			Schedule:       os.Getenv("CLEANUP_SCHEDULE"),
		},
	}

	if path := os.Getenv("TUBULAR_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.TranscriptsDir == "" {
		cfg.TranscriptsDir = filepath.Join(cfg.DataDir, "transcripts")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays non-zero values from a YAML file onto the config.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.Cleanup.RetentionDays < 0 {
		return fmt.Errorf("retention days must be >= 0, got %d", c.Cleanup.RetentionDays)
	}
	if c.Cleanup.RetentionCount < 0 {
		return fmt.Errorf("retention count must be >= 0, got %d", c.Cleanup.RetentionCount)
	}
	return nil
}

// RunsRoot returns the parent directory that holds every run directory.
func (c *Config) RunsRoot() string {
	return filepath.Join(c.DataDir, "runs")
}

// RunDir returns this process's own run directory.
func (c *Config) RunDir() string {
	return filepath.Join(c.RunsRoot(), "run_"+c.RunID)
}

// IndexPath returns the vector index database path inside the run directory.
func (c *Config) IndexPath() string {
	return filepath.Join(c.RunDir(), "index.db")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}
