package recognizer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Charset maps CTC class indices to tokens. Class 0 is the blank; class i
// decodes to Tokens[i-1]. Models trained with a space class emit it after the
// last dictionary token.
type Charset struct {
	Tokens []string
}

// NewCharset builds a Charset from tokens in class order.
func NewCharset(tokens []string) *Charset {
	return &Charset{Tokens: tokens}
}

// LoadCharset reads a dictionary with one token per non-empty line.
// A leading UTF-8 BOM is removed.
func LoadCharset(path string) (*Charset, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: opening the configured dictionary is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	tokens := make([]string, 0, 128)
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		tokens = append(tokens, strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return NewCharset(tokens), nil
}

// Size returns the number of dictionary tokens.
func (c *Charset) Size() int { return len(c.Tokens) }

// Decode maps collapsed class indices to text.
func (c *Charset) Decode(indices []int) string {
	var b strings.Builder
	for _, idx := range indices {
		switch {
		case idx >= 1 && idx <= len(c.Tokens):
			b.WriteString(c.Tokens[idx-1])
		case idx == len(c.Tokens)+1:
			b.WriteByte(' ')
		}
	}
	return b.String()
}
