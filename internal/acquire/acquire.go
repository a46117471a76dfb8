// Package acquire turns uploaded documents into images ready for MRZ reading.
package acquire

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/idcheck/internal/pdf"
	"github.com/MeKo-Tech/idcheck/internal/utils"
)

// ErrUnsupported is returned for files that are neither images nor PDFs.
var ErrUnsupported = errors.New("unsupported document format")

// DecodeError reports document content that could not be turned into an
// image. Callers treat it as an unreadable side, not as a failed request.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Name, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err carries a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

var pdfMagic = []byte("%PDF-")

// Loader decodes documents and bounds their width.
type Loader struct {
	MaxWidth int
}

// NewLoader returns a Loader limiting images to maxWidth; zero selects the default.
func NewLoader(maxWidth int) *Loader {
	if maxWidth <= 0 {
		maxWidth = utils.DefaultMaxWidth
	}
	return &Loader{MaxWidth: maxWidth}
}

// Load reads the document at path.
func (l *Loader) Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading a user-provided document path is expected
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return l.LoadBytes(filepath.Base(path), data)
}

// LoadBytes decodes an in-memory document. name is only used to recognize
// PDFs and unsupported extensions; the content decides otherwise. Every
// failure is a *DecodeError.
func (l *Loader) LoadBytes(name string, data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Name: name, Err: errors.New("empty document")}
	}

	var (
		img image.Image
		err error
	)
	if IsPDF(name, data) {
		img, err = pdf.FirstPageImageFromBytes(data)
	} else {
		img, _, err = utils.DecodeImage(data)
		if err != nil && errors.Is(err, image.ErrFormat) {
			err = fmt.Errorf("%w: %s", ErrUnsupported, name)
		}
	}
	if err != nil {
		return nil, &DecodeError{Name: name, Err: err}
	}
	return utils.LimitSize(img, l.MaxWidth), nil
}

// IsPDF reports whether data starts with the PDF signature or name ends in .pdf.
func IsPDF(name string, data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic) || strings.EqualFold(filepath.Ext(name), ".pdf")
}
