// Package retriever ranks stored embeddings against a query vector.
package retriever

import (
	"math"
	"sort"

	"paperqa/internal/domain"
)

// DefaultTopK is the number of chunks retrieved when k is not positive.
const DefaultTopK = 3

// Scored pairs a stored vector index with its similarity to the query.
type Scored struct {
	Index int
	Score float64
}

// CosineSimilarity returns the normalised dot product of a and b. Vectors of
// different length or zero magnitude score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores every vector against query, highest first. Equal scores keep
// ascending index order.
func Rank(query []float64, vectors [][]float64) []Scored {
	scored := make([]Scored, len(vectors))
	for i, v := range vectors {
		scored[i] = Scored{Index: i, Score: CosineSimilarity(query, v)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

// TopK returns the k chunks most similar to query. Fewer than k are returned
// when fewer vectors exist; an empty index yields domain.ErrEmptyIndex.
func TopK(query []float64, vectors [][]float64, chunks []domain.Chunk, k int) ([]domain.SearchResult, error) {
	if len(vectors) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if k <= 0 {
		k = DefaultTopK
	}
	ranked := Rank(query, vectors)
	if k > len(ranked) {
		k = len(ranked)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, s := range ranked[:k] {
		results = append(results, domain.SearchResult{Chunk: chunks[s.Index], Score: s.Score})
	}
	return results, nil
}

// Retrieve is TopK reduced to the chunk texts, in similarity order.
func Retrieve(query []float64, vectors [][]float64, chunks []domain.Chunk, k int) ([]string, error) {
	results, err := TopK(query, vectors, chunks, k)
	if err != nil {
		return nil, err
	}
	return Texts(results), nil
}

// Texts extracts the chunk texts from results.
func Texts(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.Text
	}
	return out
}
