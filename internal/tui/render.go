package tui

import (
	"strings"
	"unicode/utf8"

	"paperqa/internal/monitor"
	"paperqa/internal/textutil"
)

// highlightBestSentence renders text with the sentence sharing the most
// words with query highlighted.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := textutil.Sentences(text)
	qTokens := textutil.WordSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := overlap(qTokens, s); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	out := make([]string, len(sentences))
	for i, s := range sentences {
		if i == bestIdx {
			s = highlightStyle.Render(s)
		}
		out[i] = s
	}
	return strings.Join(out, " ")
}

func overlap(query map[string]struct{}, sentence string) int {
	score := 0
	for t := range textutil.WordSet(sentence) {
		if _, ok := query[t]; ok {
			score++
		}
	}
	return score
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// usageSeries splits samples into CPU and RAM percentage series.
func usageSeries(history []monitor.Usage) (cpu, ram []float64) {
	cpu = make([]float64, len(history))
	ram = make([]float64, len(history))
	for i, u := range history {
		cpu[i] = u.CPUPercent
		ram[i] = u.RAMPercent
	}
	return cpu, ram
}

// sparkline draws the last width percentages (0-100) as block characters.
func sparkline(values []float64, width int) string {
	if len(values) > width {
		values = values[len(values)-width:]
	}
	var b strings.Builder
	for _, v := range values {
		v = min(max(v, 0), 100)
		idx := int(v / 100 * float64(len(sparkTicks)-1))
		b.WriteRune(sparkTicks[idx])
	}
	return b.String()
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}
