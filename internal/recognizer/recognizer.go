// Package recognizer wraps the OCR engines that read text out of document crops.
//
// Engines are created per verification through a Factory and closed when the
// verification ends; nothing is shared between concurrent verifications.
package recognizer

//go:generate mockgen -source=recognizer.go -destination=mocks/mock_recognizer.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/idcheck/internal/models"
	"github.com/MeKo-Tech/idcheck/internal/onnx"
)

// MRZWhitelist is the character set of machine readable zones.
const MRZWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

// Engine names accepted by NewFactory.
const (
	EngineTesseract = "tesseract"
	EngineONNX      = "onnx"
)

// ErrNoBackend is returned when the selected engine was not compiled in.
var ErrNoBackend = errors.New("recognizer: engine not available in this build")

// CharsetMode restricts the characters an engine may emit.
type CharsetMode int

const (
	// CharsetRestricted limits output to MRZWhitelist.
	CharsetRestricted CharsetMode = iota
	// CharsetFull allows any character.
	CharsetFull
)

func (m CharsetMode) String() string {
	if m == CharsetRestricted {
		return "restricted"
	}
	return "full"
}

// SegmentationMode tells the engine how the crop is laid out.
type SegmentationMode int

const (
	// SegmentUniformBlock treats the crop as one block of uniform text.
	SegmentUniformBlock SegmentationMode = iota
	// SegmentAutomatic lets the engine find the layout.
	SegmentAutomatic
)

func (m SegmentationMode) String() string {
	if m == SegmentUniformBlock {
		return "uniform_block"
	}
	return "automatic"
}

// Recognizer reads the text of an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, charset CharsetMode, seg SegmentationMode) (string, error)
	Close() error
}

// Factory creates a fresh Recognizer.
type Factory func() (Recognizer, error)

// Config selects and configures an engine.
type Config struct {
	Engine string

	// Tesseract
	DataPath string
	Language string

	// ONNX
	ModelPath   string
	DictPath    string
	ImageHeight int
	NumThreads  int
	GPU         onnx.GPUConfig

	Logger *slog.Logger
}

// DefaultConfig returns the tesseract engine with English data.
func DefaultConfig() Config {
	return Config{
		Engine:      EngineTesseract,
		Language:    "eng",
		ModelPath:   models.GetRecognitionModelPath(""),
		DictPath:    models.GetDictionaryPath(""),
		ImageHeight: 48,
		GPU:         onnx.DefaultGPUConfig(),
	}
}

// NewFactory validates cfg and returns a Factory for the selected engine.
func NewFactory(cfg Config) (Factory, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch strings.ToLower(cfg.Engine) {
	case EngineTesseract, "":
		return func() (Recognizer, error) { return NewTesseract(cfg) }, nil
	case EngineONNX:
		if err := cfg.GPU.Validate(); err != nil {
			return nil, fmt.Errorf("invalid GPU config: %w", err)
		}
		if err := models.ValidateModelExists(cfg.ModelPath); err != nil {
			return nil, err
		}
		if err := models.ValidateModelExists(cfg.DictPath); err != nil {
			return nil, err
		}
		return func() (Recognizer, error) {
			e, err := NewONNX(cfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown recognizer engine %q (want %s or %s)", cfg.Engine, EngineTesseract, EngineONNX)
	}
}

// FilterWhitelist upper-cases text and drops characters outside MRZWhitelist,
// keeping line breaks.
func FilterWhitelist(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToUpper(text) {
		if r == '\n' || strings.ContainsRune(MRZWhitelist, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
