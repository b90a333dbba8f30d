package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const samplePaper = "Deep Learning for Protein Folding\nAlice Smith, Bob Jones\nUniversity of Example\n\nAbstract\nWe study folding."

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "first line",
			text:     samplePaper,
			expected: "Deep Learning for Protein Folding",
		},
		{
			name:     "skips blank and short lines",
			text:     "\n\nPreprint\n  A Survey of Retrieval Methods  \nrest",
			expected: "A Survey of Retrieval Methods",
		},
		{
			name:     "skips metadata markers",
			text:     "DOI: 10.1000/xyz123\nhttps://example.org/paper\nVolume 12, Issue 3\nSparse Attention in Practice",
			expected: "Sparse Attention in Practice",
		},
		{
			name:     "skips journal and copyright lines",
			text:     "Journal of Machine Learning Research\nCopyright 2021 the authors\nProceedings of NeurIPS 2021\nGraph Neural Networks Revisited",
			expected: "Graph Neural Networks Revisited",
		},
		{
			name:     "skips date lines",
			text:     "March 3rd, 2021\nJanuary 15, 2020\nOn the Limits of Scaling",
			expected: "On the Limits of Scaling",
		},
		{
			name:     "only first ten lines considered",
			text:     strings.Repeat("short\n", 10) + "A Perfectly Good Title Line",
			expected: TitleNotFound,
		},
		{
			name:     "empty text",
			text:     "",
			expected: TitleNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractTitle(tc.text))
		})
	}
}

func TestExtractTitle_OnlyLeadingWindow(t *testing.T) {
	text := strings.Repeat(" ", 1500) + "\nA Title Past The Window"
	assert.Equal(t, TitleNotFound, ExtractTitle(text))
}

func TestExtractAuthors_SamplePaper(t *testing.T) {
	got := ExtractAuthors(samplePaper)
	assert.Contains(t, got, "Alice Smith, Bob Jones")
}

func TestExtractAuthors_ExplicitSection(t *testing.T) {
	text := "A Study of Things\nAuthors: Alice Smith\nBob Jones\nCarol White\nAbstract\nBody text."
	got := ExtractAuthors(text)
	assert.Equal(t, "Alice Smith\nBob Jones\nCarol White", got)
}

func TestExtractAuthors_NotFound(t *testing.T) {
	assert.Equal(t, AuthorsNotFound, ExtractAuthors("nothing useful here"))
	assert.Equal(t, AuthorsNotFound, ExtractAuthors(""))
}

func TestExplicitSection(t *testing.T) {
	t.Run("stops at blank line", func(t *testing.T) {
		lines := strings.Split("Title\nAuthor: A. Person\nB. Person\n\nC. Person", "\n")
		assert.Equal(t, []string{"Author: A. Person", "B. Person"}, ExplicitSection(lines))
	})
	t.Run("stops at keywords heading", func(t *testing.T) {
		lines := strings.Split("Authors: X\nY\nKeywords:\nZ", "\n")
		assert.Equal(t, []string{"Authors: X", "Y"}, ExplicitSection(lines))
	})
	t.Run("no label", func(t *testing.T) {
		assert.Empty(t, ExplicitSection([]string{"Alice", "Bob"}))
	})
}

func TestAffiliationPattern(t *testing.T) {
	t.Run("email pulls neighbours", func(t *testing.T) {
		lines := []string{"Title of the Paper", "Jane Doe", "jane@example.edu", "Some Lab", "Body"}
		assert.Equal(t, []string{"Jane Doe", "jane@example.edu", "Some Lab"}, AffiliationPattern(lines))
	})
	t.Run("affiliation pulls the line above", func(t *testing.T) {
		lines := []string{"Title of the Paper", "John Roe", "Department of Physics"}
		assert.Equal(t, []string{"John Roe", "Department of Physics"}, AffiliationPattern(lines))
	})
	t.Run("noise lines skipped", func(t *testing.T) {
		lines := []string{"Name", "Copyright University Press"}
		assert.Empty(t, AffiliationPattern(lines))
	})
}

func TestSeparatorPattern(t *testing.T) {
	lines := []string{
		"A Title Without Commas",
		"Alice Smith, Bob Jones and Carol White",
		"Dan Brown^1",
		"Eve Black¹",
		"Keywords: a, b, c",
		"one,two,three,four,five,six,seven",
	}
	got := SeparatorPattern(lines)
	assert.Equal(t, []string{
		"Alice Smith, Bob Jones and Carol White",
		"Dan Brown^1",
		"Eve Black¹",
	}, got)
}

func TestPositionalPattern(t *testing.T) {
	lines := []string{
		"Neural Methods for Something Important",
		"Ann Author",
		"",
		"Ben Author",
		"Cat Author",
		"Dee Author",
		"Abstract",
	}
	assert.Equal(t, []string{"Ann Author", "Ben Author", "Cat Author"}, PositionalPattern(lines))

	assert.Nil(t, PositionalPattern([]string{"Neural Methods for Something Important", "Ann"}))
}

func TestStrategiesOrder(t *testing.T) {
	// A one-line explicit section falls through to the affiliation strategy.
	text := "Big Title For A Paper Here\nAuthors: Solo\n\nMax Planck\nInstitute for Physics\nAbstract"
	got := ExtractAuthors(text)
	assert.Equal(t, "Max Planck\nInstitute for Physics", got)
}

func TestExtract(t *testing.T) {
	m := Extract(samplePaper)
	assert.Equal(t, "Deep Learning for Protein Folding", m.Title)
	assert.NotEqual(t, AuthorsNotFound, m.Authors)
}
