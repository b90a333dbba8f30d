package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"the", "model's", "accuracy", "improved"}, Words("The model's accuracy (92%) improved!"))
	assert.Empty(t, Words("123 456"))
}

func TestContentWords(t *testing.T) {
	assert.Equal(t, []string{"protein", "folding", "hard"}, ContentWords("The protein folding is hard"))
}

func TestWordSet(t *testing.T) {
	set := WordSet("a b a")
	assert.Len(t, set, 2)
	assert.Contains(t, set, "a")
}

func TestSentences(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two?", "Three!"}, Sentences("One. Two? Three!"))
	assert.Equal(t, []string{"no terminator"}, Sentences("  no terminator "))
	assert.Nil(t, Sentences("   "))
}
