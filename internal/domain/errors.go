package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates invalid chunking or application settings.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates the embed call produced no vector.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrEmptyIndex indicates retrieval was requested against zero embeddings.
	ErrEmptyIndex = errors.New("no embedded content")

	// ErrNoDocument indicates a query was issued before any document was loaded.
	ErrNoDocument = errors.New("no document loaded")

	// ErrUnsupportedType indicates a source file type with no extractor.
	ErrUnsupportedType = errors.New("unsupported type")
)

// BackendError is a non-success response from the generation backend.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Body)
}
