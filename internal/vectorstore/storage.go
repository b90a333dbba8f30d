package vectorstore

import "paperqa/internal/domain"

// Index is a read-only set of embedded chunks that supports similarity search.
type Index interface {
	Len() int
	Chunks() []domain.Chunk
	Search(vector []float64, topK int) ([]domain.SearchResult, error)
}
