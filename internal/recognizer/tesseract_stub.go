//go:build !tesseract

package recognizer

import "fmt"

// NewTesseract reports ErrNoBackend; build with -tags tesseract to enable it.
func NewTesseract(Config) (Recognizer, error) {
	return nil, fmt.Errorf("%w: tesseract (build with -tags tesseract)", ErrNoBackend)
}
