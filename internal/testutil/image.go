package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

// CardSize is the ID-1 aspect ratio at roughly 300 DPI.
var CardSize = ImageSize{1012, 638}

// DocumentConfig describes a synthetic identity document.
type DocumentConfig struct {
	Size ImageSize
	// Header lines are drawn from the top, MRZ lines in the bottom quarter.
	Header     []string
	MRZ        []string
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
	Rotation   float64 // degrees
}

// DefaultDocumentConfig returns a white card with black text.
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		Size:       CardSize,
		Background: color.RGBA{240, 236, 226, 255},
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GenerateDocument renders cfg.
func GenerateDocument(cfg DocumentConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{cfg.Foreground}, Face: cfg.FontFace}
	lineHeight := cfg.FontFace.Metrics().Height.Ceil()

	for i, line := range cfg.Header {
		drawer.Dot = fixed.P(20, 20+(i+1)*lineHeight)
		drawer.DrawString(line)
	}

	startY := cfg.Size.Height - cfg.Size.Height/4
	for i, line := range cfg.MRZ {
		drawer.Dot = fixed.P(20, startY+(i+1)*lineHeight*2)
		drawer.DrawString(line)
	}

	if cfg.Rotation != 0 {
		rotated := imaging.Rotate(img, cfg.Rotation, cfg.Background)
		rgba := image.NewRGBA(rotated.Bounds())
		draw.Draw(rgba, rgba.Bounds(), rotated, rotated.Bounds().Min, draw.Src)
		return rgba
	}
	return img
}

// BlankImage returns a uniform image.
func BlankImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// SaveImage writes img as PNG to path, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}
