package recognizer

import (
	"image"

	"github.com/MeKo-Tech/idcheck/internal/utils"
)

const (
	minLineHeight = 4
	lineGapMerge  = 2
	linePadding   = 2
)

// inkMask marks the dark pixels of img (light ones on dark backgrounds).
// The mask has the size of img with origin at (0, 0).
func inkMask(img image.Image) ([]bool, int, int) {
	g := utils.ToGray(img)
	hist, total := utils.GrayHistogram(g)
	t := utils.OtsuThreshold(hist, total)

	dark := 0
	for v := 0; v <= int(t); v++ {
		dark += hist[v]
	}
	inverted := dark*2 > total

	w, h := g.Rect.Dx(), g.Rect.Dy()
	mask := make([]bool, w*h)
	for y := range h {
		for x := range w {
			isDark := g.Pix[y*g.Stride+x] <= t
			mask[y*w+x] = isDark != inverted
		}
	}
	return mask, w, h
}

// SplitLines returns the bounding rows of each text line of img, top to
// bottom, found by a horizontal ink projection. An image without clear lines
// yields its full bounds.
func SplitLines(img image.Image) []image.Rectangle {
	b := img.Bounds()
	mask, w, h := inkMask(img)
	minInk := max(1, w/200)

	rows := make([]bool, h)
	for y := range h {
		n := 0
		for x := range w {
			if mask[y*w+x] {
				n++
			}
		}
		rows[y] = n >= minInk
	}

	var lines []image.Rectangle
	for _, r := range runs(rows, lineGapMerge) {
		if r[1]-r[0] < minLineHeight {
			continue
		}
		y0 := max(0, r[0]-linePadding)
		y1 := min(h, r[1]+linePadding)
		lines = append(lines, image.Rect(b.Min.X, b.Min.Y+y0, b.Max.X, b.Min.Y+y1))
	}
	if len(lines) == 0 {
		return []image.Rectangle{b}
	}
	return lines
}

// SplitColumns splits a line of img into the blocks separated by blank gaps
// wider than the line height, left to right.
func SplitColumns(img image.Image, line image.Rectangle) []image.Rectangle {
	line = line.Intersect(img.Bounds())
	if line.Empty() {
		return nil
	}
	sub := image.NewNRGBA(image.Rect(0, 0, line.Dx(), line.Dy()))
	for y := range line.Dy() {
		for x := range line.Dx() {
			sub.Set(x, y, img.At(line.Min.X+x, line.Min.Y+y))
		}
	}
	mask, w, h := inkMask(sub)

	cols := make([]bool, w)
	for x := range w {
		for y := range h {
			if mask[y*w+x] {
				cols[x] = true
				break
			}
		}
	}

	var blocks []image.Rectangle
	for _, r := range runs(cols, h) {
		x0 := max(0, r[0]-linePadding)
		x1 := min(w, r[1]+linePadding)
		blocks = append(blocks, image.Rect(line.Min.X+x0, line.Min.Y, line.Min.X+x1, line.Max.Y))
	}
	if len(blocks) == 0 {
		return []image.Rectangle{line}
	}
	return blocks
}

// runs returns the [start, end) spans of true values, merging spans separated
// by at most gap false values.
func runs(on []bool, gap int) [][2]int {
	var out [][2]int
	start, last := -1, -1
	for i, v := range on {
		if !v {
			continue
		}
		switch {
		case start < 0:
			start = i
		case i-last-1 > gap:
			out = append(out, [2]int{start, last + 1})
			start = i
		}
		last = i
	}
	if start >= 0 {
		out = append(out, [2]int{start, last + 1})
	}
	return out
}
