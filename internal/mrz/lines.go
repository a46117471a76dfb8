package mrz

import (
	"regexp"
	"strings"
)

var (
	candidateLine = regexp.MustCompile(`^[A-Z0-9<]{28,44}$`)

	// OCR engines tend to read the filler chevron as a guillemet or bracket.
	fillerConfusions = strings.NewReplacer(
		" ", "",
		"«", "<",
		"»", "<",
		"(", "<",
		")", "<",
		"{", "<",
		"[", "<",
	)
)

// ExtractLines returns the lines of text that look like MRZ lines, in order.
func ExtractLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.ToUpper(fillerConfusions.Replace(strings.TrimSpace(line)))
		if candidateLine.MatchString(cleaned) {
			out = append(out, cleaned)
		}
	}
	return out
}

// padOrTrim forces s to exactly n characters, padding with fillers.
func padOrTrim(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat("<", n-len(s))
}
