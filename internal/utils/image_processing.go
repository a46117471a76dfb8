package utils

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// DefaultMaxWidth bounds the width of acquired images before any OCR work.
const DefaultMaxWidth = 3500

// DefaultMinHeight is the crop height below which crops are upscaled.
const DefaultMinHeight = 300

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

var errNilImage = errors.New("input image is nil")

// LimitSize downsizes img with bicubic resampling when it is wider than
// maxWidth, preserving the aspect ratio. Narrower images are returned as is.
func LimitSize(img image.Image, maxWidth int) image.Image {
	if img == nil || maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.CatmullRom)
}

// CropBottom returns an independent copy of the bottom ratio of img.
// A ratio outside (0, 1) copies the whole image.
func CropBottom(img image.Image, ratio float64) *image.NRGBA {
	b := img.Bounds()
	if ratio <= 0 || ratio >= 1 {
		return imaging.Clone(img)
	}
	h := int(float64(b.Dy()) * ratio)
	if h < 1 {
		h = 1
	}
	return imaging.Crop(img, image.Rect(b.Min.X, b.Max.Y-h, b.Max.X, b.Max.Y))
}

// ScaleUp enlarges img by factor with bicubic resampling. Factors at or below
// one return a copy at the original size.
func ScaleUp(img image.Image, factor float64) image.Image {
	if factor <= 1 {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	w := int(float64(b.Dx())*factor + 0.5)
	h := int(float64(b.Dy())*factor + 0.5)
	return imaging.Resize(img, w, h, imaging.CatmullRom)
}

// ScaleUpIfShort upscales img so its height reaches minHeight, when it is shorter.
func ScaleUpIfShort(img image.Image, minHeight int) image.Image {
	h := img.Bounds().Dy()
	if h <= 0 || h >= minHeight {
		return img
	}
	return ScaleUp(img, float64(minHeight)/float64(h))
}

var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// Sharpen applies a 3x3 sharpening kernel. Border pixels are copied from the
// source unmodified.
func Sharpen(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	dst := imaging.Convolve3x3(src, sharpenKernel, nil)

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w < 3 || h < 3 {
		return src
	}
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, w, 1),
		image.Rect(0, h-1, w, h),
		image.Rect(0, 0, 1, h),
		image.Rect(w-1, 0, w, h),
	} {
		draw.Draw(dst, r, src, r.Min, draw.Src)
	}
	return dst
}

// NormalizeImageInto converts img to a CHW float32 tensor in [-1, 1], the
// input range of PaddleOCR recognition models, and returns the data, width
// and height. The data is written into buf when it holds at least
// 3*width*height elements; otherwise a new slice is allocated.
func NormalizeImageInto(img image.Image, buf []float32) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errNilImage}
	}
	nrgba := imaging.Clone(img)
	width, height := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}

	plane := width * height
	data := buf
	if len(data) < 3*plane {
		data = make([]float32, 3*plane)
	}
	data = data[:3*plane]
	for y := range height {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := range width {
			idx := y*width + x
			data[idx] = float32(row[x*4])/127.5 - 1
			data[plane+idx] = float32(row[x*4+1])/127.5 - 1
			data[2*plane+idx] = float32(row[x*4+2])/127.5 - 1
		}
	}
	return data, width, height, nil
}
