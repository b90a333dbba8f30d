package retriever

import (
	"math"
	"sort"

	"paperqa/internal/domain"
	"paperqa/internal/textutil"
)

// IsZero reports whether vec has no non-zero component. A TF-IDF query with
// no known terms embeds to such a vector and scores 0 against everything.
func IsZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// Lexical ranks chunks by word overlap with question using the Ochiai
// coefficient |A∩B| / sqrt(|A||B|). Ordering and tie-breaking match TopK.
func Lexical(question string, chunks []domain.Chunk, k int) ([]domain.SearchResult, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if k <= 0 {
		k = DefaultTopK
	}
	qset := textutil.WordSet(question)
	scored := make([]Scored, len(chunks))
	for i, ch := range chunks {
		scored[i] = Scored{Index: i, Score: ochiai(qset, textutil.WordSet(ch.Text))}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, s := range scored[:k] {
		results = append(results, domain.SearchResult{Chunk: chunks[s.Index], Score: s.Score})
	}
	return results, nil
}

func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
