// Package ollama is a client for a local Ollama server providing embeddings,
// text generation and model listing.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"paperqa/internal/domain"
)

var (
	_ domain.Embedder    = (*Client)(nil)
	_ domain.Generator   = (*Client)(nil)
	_ domain.ModelLister = (*Client)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultModel          = "gemma3:4b-it-q8_0"
	DefaultEmbeddingModel = "nomic-embed-text:latest"
	DefaultTimeout        = 120 * time.Second
)

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the server root, without the /api suffix.
	BaseURL string

	// Model is the generation model.
	Model string

	// EmbeddingModel is the model used for /api/embeddings.
	EmbeddingModel string

	// Timeout bounds every request.
	Timeout time.Duration
}

// Client talks to the Ollama HTTP API.
type Client struct {
	client         *http.Client
	baseURL        string
	embeddingModel string

	mu    sync.RWMutex
	model string
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewClient creates a client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		client:         &http.Client{Timeout: cfg.Timeout},
		baseURL:        cfg.BaseURL,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "ollama" }

// ModelName returns the generation model.
func (c *Client) ModelName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel switches the generation model for subsequent calls.
func (c *Client) SetModel(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = name
}

// EmbeddingModelName returns the embedding model.
func (c *Client) EmbeddingModelName() string { return c.embeddingModel }

// Embed returns the embedding of text. A non-200 status yields a
// *domain.BackendError; an empty vector yields domain.ErrEmbeddingUnavailable.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var out embedResponse
	if err := c.post(ctx, "/api/embeddings", embedRequest{Model: c.embeddingModel, Prompt: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return out.Embedding, nil
}

// Generate produces a non-streamed completion for prompt under systemPrompt.
func (c *Client) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	req := generateRequest{
		Model:  c.ModelName(),
		Prompt: prompt,
		System: systemPrompt,
		Stream: false,
	}
	var out generateResponse
	if err := c.post(ctx, "/api/generate", req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// ListModels returns the names of locally available models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Ping checks that the server answers on /api/tags.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.ListModels(ctx); err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", c.baseURL, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.BackendError{StatusCode: resp.StatusCode, Body: "failed to read response"}
	}
	return &domain.BackendError{StatusCode: resp.StatusCode, Body: string(body)}
}
