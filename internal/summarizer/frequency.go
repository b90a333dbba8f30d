package summarizer

import (
	"math"
	"sort"
	"strings"

	"paperqa/internal/domain"
	"paperqa/internal/textutil"
)

// DefaultSentences is used when Summarize is called with a non-positive limit.
const DefaultSentences = 5

var _ domain.Summarizer = (*FrequencySummarizer)(nil)

// FrequencySummarizer picks the sentences whose content words occur most
// often in the whole text.
type FrequencySummarizer struct{}

// NewFrequencySummarizer creates a frequency-based extractive summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{}
}

// Summarize returns up to maxSentences sentences of text in their original
// order, joined by a space.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultSentences
	}
	sentences := textutil.Sentences(text)
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " "), nil
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = textutil.Words(sent)
		for _, tok := range tokens[i] {
			if !textutil.IsStopword(tok) {
				freq[tok]++
			}
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, toks := range tokens {
		var sum float64
		for _, tok := range toks {
			sum += freq[tok]
		}
		if maxF > 0 {
			sum /= maxF
		}
		// long sentences would otherwise always win
		if n := len(toks); n > 0 {
			sum /= math.Sqrt(float64(n))
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}
