package metadata

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy proposes candidate author lines from the leading lines of a document.
type Strategy func(lines []string) []string

// Strategies are tried in order; the first yielding more than one distinct
// line is used.
var Strategies = []Strategy{
	ExplicitSection,
	AffiliationPattern,
	SeparatorPattern,
	PositionalPattern,
}

var (
	authorLabelRe   = regexp.MustCompile(`\b(authors?:|authors?)[^a-z]`)
	sectionEndRe    = regexp.MustCompile(`\b(abstract|introduction|keywords)[:.]?\s*$`)
	abstractLineRe  = regexp.MustCompile(`\babstract[:.]?\s*$`)
	noiseRe         = regexp.MustCompile(`\b(abstract|keywords|copyright|proceedings)\b`)
	emailRe         = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	superscriptRe   = regexp.MustCompile(`[A-Za-z]\s*[¹²³⁴⁵⁶⁷⁸⁹]\s*,?`)
	caretMarkerRe   = regexp.MustCompile(`[A-Za-z]\s*\^\s*[1-9]`)
	leadingLabelRe  = regexp.MustCompile(`(?i)^authors?:?\s*`)
	affiliationKeys = []string{"university", "institute", "department", "laboratory", "school of", "college"}
)

// ExtractAuthors returns the author block found by the first successful
// strategy, or AuthorsNotFound.
func ExtractAuthors(text string) string {
	lines := strings.Split(prefix(text, authorsWindow), "\n")
	for _, strategy := range Strategies {
		found := unique(strategy(lines))
		if len(found) <= 1 {
			continue
		}
		return leadingLabelRe.ReplaceAllString(strings.Join(found, "\n"), "")
	}
	return AuthorsNotFound
}

// ExplicitSection collects the lines from an "Author(s):" label up to the
// abstract, introduction or keywords heading, or the first blank line.
func ExplicitSection(lines []string) []string {
	var out []string
	started := false
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if !started {
			if line != "" && authorLabelRe.MatchString(strings.ToLower(line)) {
				started = true
				out = append(out, line)
			}
			continue
		}
		if line == "" || sectionEndRe.MatchString(strings.ToLower(line)) {
			break
		}
		out = append(out, line)
	}
	return out
}

// AffiliationPattern looks in the first 30 lines for email addresses (taking
// the neighbouring lines too) and affiliation keywords (taking the line above
// as the likely author name).
func AffiliationPattern(lines []string) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	for i, raw := range head(lines, 30) {
		line := strings.TrimSpace(raw)
		if isNoise(line) {
			continue
		}
		switch {
		case emailRe.MatchString(line):
			for j := max(0, i-1); j < min(len(lines), i+2); j++ {
				add(lines[j])
			}
		case containsAny(strings.ToLower(line), affiliationKeys):
			if i > 0 {
				add(lines[i-1])
			}
			add(line)
		}
	}
	return out
}

// SeparatorPattern looks in the first 20 lines for comma separated name lists
// and superscript affiliation markers.
func SeparatorPattern(lines []string) []string {
	var out []string
	for _, raw := range head(lines, 20) {
		line := strings.TrimSpace(raw)
		if isNoise(line) {
			continue
		}
		if looksLikeNameList(line) || superscriptRe.MatchString(line) || caretMarkerRe.MatchString(line) {
			out = append(out, line)
		}
	}
	return out
}

func looksLikeNameList(line string) bool {
	commas := strings.Count(line, ",")
	if commas == 0 {
		return false
	}
	lower := strings.ToLower(line)
	if strings.Contains(lower, " and ") || strings.Contains(line, " & ") {
		return true
	}
	return commas <= 5
}

// PositionalPattern takes up to three short lines between the title line and
// the abstract heading.
func PositionalPattern(lines []string) []string {
	titleIdx, abstractIdx := -1, -1
	for i, line := range head(lines, 10) {
		if utf8.RuneCountInString(line) > 20 && !noiseRe.MatchString(strings.ToLower(line)) {
			titleIdx = i
			break
		}
	}
	for i, line := range head(lines, 50) {
		if abstractLineRe.MatchString(strings.ToLower(line)) {
			abstractIdx = i
			break
		}
	}
	if titleIdx < 0 || abstractIdx <= titleIdx {
		return nil
	}
	var out []string
	for _, raw := range lines[titleIdx+1 : abstractIdx] {
		line := strings.TrimSpace(raw)
		if line == "" || utf8.RuneCountInString(line) >= 100 {
			continue
		}
		out = append(out, line)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func isNoise(line string) bool {
	return utf8.RuneCountInString(line) < 3 || noiseRe.MatchString(strings.ToLower(line))
}

func head(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

// unique removes duplicates preserving first-seen order.
func unique(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := lines[:0:0]
	for _, l := range lines {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
