package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/internal/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL})
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultModel, c.ModelName())
	assert.Equal(t, DefaultEmbeddingModel, c.EmbeddingModelName())
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
	assert.Equal(t, "ollama", c.Name())
}

func TestClient_Embed(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultEmbeddingModel, req.Model)
		assert.Equal(t, "hello", req.Prompt)

		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	})

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestClient_EmbedEmptyVector(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embedding": []}`))
	})

	_, err := c.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestClient_EmbedStatusError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusNotFound)
	})

	_, err := c.Embed(context.Background(), "hello")
	var be *domain.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusNotFound, be.StatusCode)
	assert.Contains(t, be.Body, "model not loaded")
}

func TestClient_Generate(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.Equal(t, "the prompt", req.Prompt)
		assert.Equal(t, "the system", req.System)
		assert.False(t, req.Stream)

		_ = json.NewEncoder(w).Encode(generateResponse{Response: "an answer", Done: true})
	})
	c.SetModel("llama3")

	out, err := c.Generate(context.Background(), "the prompt", "the system")
	require.NoError(t, err)
	assert.Equal(t, "an answer", out)
}

func TestClient_GenerateStatusError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	_, err := c.Generate(context.Background(), "p", "s")
	var be *domain.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 500, be.StatusCode)
	assert.Equal(t, `{"error":"boom"}`, be.Body)
}

func TestClient_ListModels(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"models":[{"name":"gemma3:4b"},{"name":"nomic-embed-text:latest"}]}`))
	})

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemma3:4b", "nomic-embed-text:latest"}, models)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestClient_PingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url})
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama not reachable at "+url)
}
