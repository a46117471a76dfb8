package recognizer

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ResizeForRecognition scales img to targetHeight keeping the aspect ratio.
// maxWidth > 0 clamps the width; padToMultiple > 0 pads the right edge with
// black up to the next multiple. Returns the image and its final size.
func ResizeForRecognition(img image.Image, targetHeight, maxWidth, padToMultiple int) (image.Image, int, int, error) {
	if img == nil {
		return nil, 0, 0, errors.New("input image is nil")
	}
	if targetHeight <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid targetHeight: %d", targetHeight)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, 0, 0, errors.New("input image is empty")
	}

	newW := max(1, int(float64(b.Dx())*float64(targetHeight)/float64(b.Dy())))
	if maxWidth > 0 && newW > maxWidth {
		newW = maxWidth
	}
	resized := imaging.Resize(img, newW, targetHeight, imaging.Lanczos)

	outW := newW
	if padToMultiple > 0 && newW%padToMultiple != 0 {
		outW = newW + padToMultiple - newW%padToMultiple
	}
	if outW == newW {
		return resized, outW, targetHeight, nil
	}
	canvas := imaging.New(outW, targetHeight, color.Black)
	return imaging.Paste(canvas, resized, image.Pt(0, 0)), outW, targetHeight, nil
}
