//go:build tesseract

package recognizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine drives libtesseract through gosseract.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract opens a tesseract client for cfg's language and data path.
func NewTesseract(cfg Config) (Recognizer, error) {
	client := gosseract.NewClient()
	if cfg.DataPath != "" {
		if err := client.SetTessdataPrefix(cfg.DataPath); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set language %q: %w", lang, err)
	}
	return &TesseractEngine{client: client}, nil
}

// Recognize runs tesseract with the page segmentation and whitelist of the modes.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image, charset CharsetMode, seg SegmentationMode) (string, error) {
	if img == nil {
		return "", errors.New("input image is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return "", errors.New("recognizer is closed")
	}

	psm := gosseract.PSM_SINGLE_BLOCK
	if seg == SegmentAutomatic {
		psm = gosseract.PSM_AUTO
	}
	if err := e.client.SetPageSegMode(psm); err != nil {
		return "", fmt.Errorf("set page segmentation: %w", err)
	}
	whitelist := ""
	if charset == CharsetRestricted {
		whitelist = MRZWhitelist
	}
	if err := e.client.SetWhitelist(whitelist); err != nil {
		return "", fmt.Errorf("set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	return e.client.Text()
}

// Close releases the tesseract client.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
