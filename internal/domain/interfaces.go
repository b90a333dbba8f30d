package domain

import (
	"context"
	"time"
)

// Document represents a single research paper loaded into the system.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a window of the document text used as an independent retrieval unit.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	// Offset is the character position of the window start in the document.
	Offset int
}

// SearchResult represents a matching chunk with its cosine similarity.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// EmbedFunc converts text into an embedding vector.
type EmbedFunc func(ctx context.Context, text string) ([]float64, error)

// Embedder converts free text into a numeric vector representation.
// An error or an empty vector means no embedding was produced.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Preparer is implemented by embedders that must see the corpus before
// embedding (e.g. TF-IDF). The session calls Prepare on every load.
type Preparer interface {
	Prepare(corpus []string) error
}

// Generator produces text from a prompt and a system directive.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
	ModelName() string
}

// ModelLister enumerates models available on the generation backend.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Extractor turns a source file into plain text.
type Extractor interface {
	Extract(path string) (string, error)
	Metadata(path string) (map[string]string, error)
}

// DocumentLoaded describes a completed load.
type DocumentLoaded struct {
	Path           string
	Model          string
	EmbeddingModel string
	Duration       time.Duration
	Title          string
	Authors        string
	Chunks         int
	Embedded       int
}

// QueryAnswered describes a completed ask.
type QueryAnswered struct {
	Question string
	Answer   string
	Model    string
	Duration time.Duration
	Err      error
}

// Observer is notified of session events. It is never queried by the core.
type Observer interface {
	DocumentLoaded(evt DocumentLoaded)
	QueryAnswered(evt QueryAnswered)
	Error(operation, message string)
}

// QAService defines the operations exposed by the application core.
type QAService interface {
	Load(ctx context.Context, doc Document) error
	Ask(ctx context.Context, question string) (string, error)
}
