package memory

import (
	"context"

	"paperqa/internal/domain"
	"paperqa/internal/retriever"
)

// Storage holds the chunks of one document and their embeddings as parallel
// slices. It is built once and never mutated.
type Storage struct {
	chunks  []domain.Chunk
	vectors [][]float64
	// Failed counts chunks dropped because their embedding failed.
	Failed int
}

// Build embeds every chunk in order. A chunk whose embedding errors or comes
// back empty is left out together with its vector, so the two slices always
// line up. When every call fails the storage is empty but usable.
func Build(ctx context.Context, chunks []domain.Chunk, embed domain.EmbedFunc) *Storage {
	s := &Storage{
		chunks:  make([]domain.Chunk, 0, len(chunks)),
		vectors: make([][]float64, 0, len(chunks)),
	}
	for _, ch := range chunks {
		vec, err := embed(ctx, ch.Text)
		if err != nil || len(vec) == 0 {
			s.Failed++
			continue
		}
		s.chunks = append(s.chunks, ch)
		s.vectors = append(s.vectors, vec)
	}
	return s
}

// Len returns the number of embedded chunks.
func (s *Storage) Len() int { return len(s.chunks) }

// Chunks returns a copy of the stored chunks in document order.
func (s *Storage) Chunks() []domain.Chunk {
	return append([]domain.Chunk(nil), s.chunks...)
}

// Vectors returns a copy of the stored vectors in document order.
func (s *Storage) Vectors() [][]float64 {
	out := make([][]float64, len(s.vectors))
	for i, v := range s.vectors {
		out[i] = append([]float64(nil), v...)
	}
	return out
}

// Search ranks the stored chunks by cosine similarity to vector.
func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	return retriever.TopK(vector, s.vectors, s.chunks, topK)
}
