// Package metadata recovers a best-effort title and author list from the
// leading text of a research paper.
package metadata

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// TitleNotFound is returned when no line survives the title filters.
	TitleNotFound = "Unable to extract title"
	// AuthorsNotFound is returned when no heuristic yields more than one line.
	AuthorsNotFound = "Unable to extract author information"

	titleWindow   = 1500
	authorsWindow = 5000
	titleLines    = 10
	minTitleChars = 10
)

var (
	metadataMarkers = []string{"doi:", "issn:", "volume", "issue", "http"}
	journalMarkers  = []string{"journal of", "copyright", "proceedings"}
	dateLineRe      = regexp.MustCompile(`^[a-zA-Z]+ \d{1,2}(st|nd|rd|th)?, \d{4}$`)
)

// Metadata is the derived title and author block of a document.
type Metadata struct {
	Title   string
	Authors string
}

// Extract runs both extractors over text.
func Extract(text string) Metadata {
	return Metadata{Title: ExtractTitle(text), Authors: ExtractAuthors(text)}
}

// ExtractTitle returns the first plausible title line among the first ten
// lines of the document, or TitleNotFound.
func ExtractTitle(text string) string {
	lines := strings.Split(prefix(text, titleWindow), "\n")
	if len(lines) > titleLines {
		lines = lines[:titleLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || utf8.RuneCountInString(line) < minTitleChars {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, metadataMarkers) || containsAny(lower, journalMarkers) {
			continue
		}
		if dateLineRe.MatchString(line) {
			continue
		}
		return line
	}
	return TitleNotFound
}

// prefix returns the first n characters of s.
func prefix(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
