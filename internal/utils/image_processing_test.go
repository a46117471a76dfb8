package utils

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestLimitSize(t *testing.T) {
	wide := solid(4000, 1000, color.White)
	got := LimitSize(wide, DefaultMaxWidth)
	assert.Equal(t, 3500, got.Bounds().Dx())
	assert.Equal(t, 875, got.Bounds().Dy())

	narrow := solid(800, 600, color.White)
	assert.Same(t, narrow, LimitSize(narrow, DefaultMaxWidth))
}

func TestCropBottom(t *testing.T) {
	img := solid(100, 200, color.White)
	for y := 150; y < 200; y++ {
		for x := range 100 {
			img.Set(x, y, color.Black)
		}
	}

	crop := CropBottom(img, 0.25)
	require.Equal(t, image.Rect(0, 0, 100, 50), crop.Bounds())
	assert.Equal(t, color.NRGBA{A: 255}, crop.NRGBAAt(10, 10))

	crop.Set(0, 0, color.White)
	assert.Equal(t, color.NRGBA{A: 255}, img.NRGBAAt(0, 150), "crop must not alias its source")

	assert.Equal(t, img.Bounds(), CropBottom(img, 1).Bounds())
	assert.Equal(t, img.Bounds(), CropBottom(img, 0).Bounds())
}

func TestCropBottom_OffsetBounds(t *testing.T) {
	img := solid(100, 200, color.White).SubImage(image.Rect(10, 20, 60, 120))
	crop := CropBottom(img, 0.5)
	assert.Equal(t, 50, crop.Bounds().Dx())
	assert.Equal(t, 50, crop.Bounds().Dy())
}

func TestScaleUpIfShort(t *testing.T) {
	img := solid(200, 100, color.White)
	got := ScaleUpIfShort(img, DefaultMinHeight)
	assert.Equal(t, 300, got.Bounds().Dy())
	assert.Equal(t, 600, got.Bounds().Dx())

	tall := solid(200, 400, color.White)
	assert.Same(t, tall, ScaleUpIfShort(tall, DefaultMinHeight))
}

func TestScaleUp_FactorBelowOneCopies(t *testing.T) {
	img := solid(20, 10, color.White)
	got := ScaleUp(img, 0.5)
	assert.Equal(t, img.Bounds(), got.Bounds())
}

func TestSharpen_KeepsBorderAndEnhancesEdges(t *testing.T) {
	img := solid(5, 5, color.Gray{Y: 100})
	img.Set(2, 2, color.Gray{Y: 150})
	img.Set(0, 0, color.Gray{Y: 10})

	got := Sharpen(img)
	require.Equal(t, img.Bounds(), got.Bounds())
	assert.Equal(t, img.NRGBAAt(0, 0), got.NRGBAAt(0, 0))
	assert.Equal(t, img.NRGBAAt(4, 2), got.NRGBAAt(4, 2))
	// 5*150 - 4*100 = 350, clamped.
	assert.Equal(t, uint8(255), got.NRGBAAt(2, 2).R)
	// 5*100 - 3*100 - 150 = 50
	assert.Equal(t, uint8(50), got.NRGBAAt(2, 1).R)
}

func TestSharpen_TinyImage(t *testing.T) {
	img := solid(2, 2, color.White)
	assert.Equal(t, img.Bounds(), Sharpen(img).Bounds())
}

func TestNormalizeImageInto(t *testing.T) {
	img := solid(4, 2, color.NRGBA{R: 255, G: 0, B: 255, A: 255})
	data, w, h, err := NormalizeImageInto(img, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)
	require.Len(t, data, 24)
	assert.InDelta(t, 1.0, data[0], 1e-6)
	assert.InDelta(t, -1.0, data[8], 1e-6)
	assert.InDelta(t, 1.0, data[16], 1e-6)

	_, _, _, err = NormalizeImageInto(nil, nil)
	var ipe *ImageProcessingError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "normalize", ipe.Operation)
}

func TestNormalizeImageInto_ReusesBuffer(t *testing.T) {
	img := solid(4, 2, color.NRGBA{R: 255, G: 0, B: 255, A: 255})
	buf := make([]float32, 100)
	data, _, _, err := NormalizeImageInto(img, buf)
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Same(t, &buf[0], &data[0])

	data, _, _, err = NormalizeImageInto(img, make([]float32, 3))
	require.NoError(t, err)
	assert.Len(t, data, 24)
}
