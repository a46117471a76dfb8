package utils

import (
	"image"
	"image/color"
)

// PreprocessForMRZ converts img to a black-and-white image for MRZ reading:
// luma grayscale, contrast stretch on mid-range images, then Otsu binarization.
func PreprocessForMRZ(img image.Image) *image.Gray {
	g := ToGray(img)
	StretchContrast(g)
	hist, total := GrayHistogram(g)
	Binarize(g, OtsuThreshold(hist, total))
	return g
}

// ToGray returns a grayscale copy of img using Rec. 601 luma weights.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			row[x-b.Min.X] = uint8(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B))
		}
	}
	return g
}

// StretchContrast maps the gray range of g onto 0..255 in place, only when the
// range is wider than 20 and narrower than 230.
func StretchContrast(g *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range g.Pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi < lo {
		return
	}
	spread := int(hi) - int(lo)
	if spread <= 20 || spread >= 230 {
		return
	}
	for i, v := range g.Pix {
		s := float64(int(v)-int(lo)) * 255 / float64(spread)
		g.Pix[i] = uint8(min(255, max(0, int(s))))
	}
}

// GrayHistogram counts the pixels of g per gray level.
func GrayHistogram(g *image.Gray) ([256]int, int) {
	var hist [256]int
	b := g.Bounds()
	for y := range b.Dy() {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist, b.Dx() * b.Dy()
}

// OtsuThreshold returns the gray level maximizing the between-class variance
// wB*wF*(mB-mF)^2. Histograms with a single populated level yield 128.
func OtsuThreshold(hist [256]int, total int) uint8 {
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var sumB, best float64
	wB := 0
	threshold := 128
	for t := range 256 {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		v := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if v > best {
			best = v
			threshold = t
		}
	}
	return uint8(threshold)
}

// Binarize sets pixels above t to white and the rest to black, in place.
func Binarize(g *image.Gray, t uint8) {
	for i, v := range g.Pix {
		if v > t {
			g.Pix[i] = 255
		} else {
			g.Pix[i] = 0
		}
	}
}
