package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"paperqa/internal/chunker"
	"paperqa/internal/domain"
	"paperqa/internal/ollama"
	"paperqa/internal/retriever"
)

// Embedder types accepted in EmbedderConfig.Type.
const (
	EmbedderOllama = "ollama"
	EmbedderOpenAI = "openai"
	EmbedderTFIDF  = "tfidf"
)

// Environment variables that override the file.
const (
	EnvOllamaHost     = "OLLAMA_HOST"
	EnvModel          = "PAPERQA_MODEL"
	EnvEmbeddingModel = "PAPERQA_EMBEDDING_MODEL"
)

// OllamaConfig holds the generation backend connection.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures the sliding window.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// RetrievalConfig configures how many chunks back an answer.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// SessionLogConfig configures where exported session logs are written.
type SessionLogConfig struct {
	Dir string `yaml:"dir"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Ollama     OllamaConfig     `yaml:"ollama"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	SessionLog SessionLogConfig `yaml:"session_log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/paperqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/paperqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored; variables already set are kept.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports settings that would make loading or asking fail.
func (c *AppConfig) Validate() error {
	if err := c.ChunkParams().Validate(); err != nil {
		return err
	}
	switch c.Embedder.Type {
	case EmbedderOllama, EmbedderTFIDF:
	case EmbedderOpenAI:
		if c.Embedder.OpenAI == nil {
			return fmt.Errorf("%w: embedder.openai section is required", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown embedder type %q", domain.ErrInvalidConfig, c.Embedder.Type)
	}
	switch c.Summarizer.Type {
	case "frequency", "none":
	default:
		return fmt.Errorf("%w: unknown summarizer type %q", domain.ErrInvalidConfig, c.Summarizer.Type)
	}
	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("%w: retrieval.top_k must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// ChunkParams returns the chunker settings.
func (c *AppConfig) ChunkParams() chunker.Params {
	return chunker.Params{ChunkSize: c.Chunker.ChunkSize, Overlap: c.Chunker.Overlap}
}

// OllamaClientConfig converts the ollama section for ollama.NewClient.
func (c *AppConfig) OllamaClientConfig() ollama.Config {
	return ollama.Config{
		BaseURL:        c.Ollama.BaseURL,
		Model:          c.Ollama.Model,
		EmbeddingModel: c.Ollama.EmbeddingModel,
		Timeout:        time.Duration(c.Ollama.TimeoutSecs) * time.Second,
	}
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "paperqa", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Ollama: OllamaConfig{
			BaseURL:        ollama.DefaultBaseURL,
			Model:          ollama.DefaultModel,
			EmbeddingModel: ollama.DefaultEmbeddingModel,
			TimeoutSecs:    int(ollama.DefaultTimeout / time.Second),
		},
		Embedder:   EmbedderConfig{Type: EmbedderOllama},
		Chunker:    ChunkerConfig{ChunkSize: chunker.DefaultChunkSize, Overlap: chunker.DefaultOverlap},
		Retrieval:  RetrievalConfig{TopK: retriever.DefaultTopK},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 5},
		Logging:    LoggingConfig{Level: "info"},
		SessionLog: SessionLogConfig{Dir: "."},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	d := Default()
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = d.Ollama.BaseURL
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = d.Ollama.Model
	}
	if cfg.Ollama.EmbeddingModel == "" {
		cfg.Ollama.EmbeddingModel = d.Ollama.EmbeddingModel
	}
	if cfg.Ollama.TimeoutSecs == 0 {
		cfg.Ollama.TimeoutSecs = d.Ollama.TimeoutSecs
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = d.Embedder.Type
	}
	// an explicit overlap of 0 is valid, so only fill both when the section is absent
	if cfg.Chunker == (ChunkerConfig{}) {
		cfg.Chunker = d.Chunker
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = d.Retrieval.TopK
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = d.Summarizer.Type
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = d.Summarizer.MaxSentences
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.SessionLog.Dir == "" {
		cfg.SessionLog.Dir = d.SessionLog.Dir
	}
	if cfg.Embedder.Type == EmbedderOpenAI && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 5
		}
	}
}

func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvOllamaHost)); v != "" {
		if !strings.Contains(v, "://") {
			v = "http://" + v
		}
		cfg.Ollama.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Ollama.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEmbeddingModel)); v != "" {
		cfg.Ollama.EmbeddingModel = v
	}
}
