// Package textutil holds the word and sentence tokenization shared by the
// offline embedder, the summarizer and the TUI highlighter.
package textutil

import (
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"we", "our", "us", "al", "et", "also", "which", "has", "have", "not", "its",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Words returns the lower-cased letter tokens of s.
func Words(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// ContentWords returns Words(s) without stopwords.
func ContentWords(s string) []string {
	raw := Words(s)
	out := raw[:0]
	for _, w := range raw {
		if !IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

// IsStopword reports whether w is a common English function word.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// WordSet returns the distinct Words of s.
func WordSet(s string) map[string]struct{} {
	tokens := Words(s)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// Sentences splits s at terminal punctuation. Text without a terminator is
// returned as a single trimmed sentence.
func Sentences(s string) []string {
	found := sentenceRe.FindAllString(s, -1)
	if len(found) == 0 {
		if t := strings.TrimSpace(s); t != "" {
			return []string{t}
		}
		return nil
	}
	for i := range found {
		found[i] = strings.TrimSpace(found[i])
	}
	return found
}
