package tfidf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"paperqa/internal/domain"
	"paperqa/internal/textutil"
)

var (
	_ domain.Embedder = (*Embedder)(nil)
	_ domain.Preparer = (*Embedder)(nil)
)

// Embedder implements a simple TF-IDF vectorizer for offline use.
// It builds a vocabulary from the chunks of the loaded document; vectors are
// only comparable within one preparation.
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
	prepared   bool
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{vocabulary: make(map[string]int)}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare builds the vocabulary and IDF values from the provided corpus.
func (e *Embedder) Prepare(corpus []string) error {
	e.prepared = false
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range textutil.ContentWords(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return errors.New("no tokens found in corpus")
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		// smoothed IDF
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.prepared = true
	return nil
}

// Dimension returns the vocabulary size of the last preparation.
func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed computes the L2-normalised TF-IDF embedding for the given text.
// Text with no known terms yields a zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	if !e.prepared {
		return nil, fmt.Errorf("%w: tfidf embedder not prepared", domain.ErrEmbeddingUnavailable)
	}
	vec := make([]float64, len(e.idf))
	tf := make(map[int]int)
	total := 0
	for _, tok := range textutil.ContentWords(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	var norm float64
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
		norm += vec[idx] * vec[idx]
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
