// Package match compares identity fields read from a document with the
// fields of a stored profile, tolerating accents, case and name ordering.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
)

// Normalize decomposes s, drops combining marks, upper-cases it and
// collapses runs of whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}

// Options tunes name comparison.
type Options struct {
	// Fuzzy also accepts names within MaxDistance edits of each other.
	Fuzzy       bool
	MaxDistance int
	// MinTokenLength is the shortest token eligible for fuzzy comparison.
	MinTokenLength int
}

// DefaultOptions returns exact matching with the fuzzy thresholds preset.
func DefaultOptions() Options {
	return Options{MaxDistance: 2, MinTokenLength: 4}
}

// Matcher compares names and dates. The zero value matches exactly.
type Matcher struct {
	opts Options
}

// New returns a matcher with opts.
func New(opts Options) *Matcher {
	return &Matcher{opts: opts}
}

// Names reports whether a and b denote the same name: equal after
// normalization, one containing the other, or sharing a token. Two empty
// names match; an empty name never matches a non-empty one.
func (m *Matcher) Names(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return true
	}
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	if m.opts.Fuzzy && m.close(compact(na), compact(nb)) {
		return true
	}

	ta, tb := strings.Fields(na), strings.Fields(nb)
	for _, x := range ta {
		for _, y := range tb {
			if x == y {
				return true
			}
			if m.opts.Fuzzy && m.close(x, y) {
				return true
			}
		}
	}
	return false
}

func (m *Matcher) close(a, b string) bool {
	if len([]rune(a)) < m.opts.MinTokenLength || len([]rune(b)) < m.opts.MinTokenLength {
		return false
	}
	return Levenshtein(a, b) <= m.opts.MaxDistance
}

func compact(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// Dates reports whether both dates are present and equal.
func (m *Matcher) Dates(a, b *mrz.Date) bool {
	return a != nil && b != nil && *a == *b
}

// Levenshtein returns the edit distance between a and b in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
