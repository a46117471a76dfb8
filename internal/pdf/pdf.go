// Package pdf acquires the first page of a PDF document as a raster image.
//
// Scanned identity documents embed one full-page raster per page, so the page
// image is recovered by extracting the embedded images of page 1 with pdfcpu
// and keeping the largest one at its native resolution.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/idcheck/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrNoPageImage is returned when page 1 carries no raster image.
	ErrNoPageImage = errors.New("pdf: first page has no image")
	// ErrEncrypted is returned for PDFs that cannot be opened without a password.
	ErrEncrypted = errors.New("pdf: document is encrypted")
)

// FirstPageImage returns the largest image embedded in page 1 of the PDF at path.
func FirstPageImage(path string) (image.Image, error) {
	tempDir, err := os.MkdirTemp("", "idcheck-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(path, tempDir, []string{"1"}, conf); err != nil {
		if isEncryptionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	return largestImage(tempDir)
}

// FirstPageImageFromBytes is FirstPageImage for an in-memory document.
func FirstPageImageFromBytes(data []byte) (image.Image, error) {
	f, err := os.CreateTemp("", "idcheck-upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return FirstPageImage(name)
}

// largestImage decodes every image in dir and returns the one with the most pixels.
// Unreadable files are skipped.
func largestImage(dir string) (image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted images: %w", err)
	}

	var best image.Image
	bestArea := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		img, _, err := utils.DecodeImage(data)
		if err != nil {
			continue
		}
		if area := img.Bounds().Dx() * img.Bounds().Dy(); area > bestArea {
			best, bestArea = img, area
		}
	}
	if best == nil {
		return nil, ErrNoPageImage
	}
	return best, nil
}

func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypted") ||
		strings.Contains(msg, "password") ||
		strings.Contains(msg, "decrypt")
}
