package recognizer

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripes draws dark horizontal bars on white at the given [y0, y1) rows.
func stripes(w, h int, bars ...[2]int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, bar := range bars {
		for y := bar[0]; y < bar[1]; y++ {
			for x := 10; x < w-10; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

func TestSplitLines(t *testing.T) {
	img := stripes(200, 100, [2]int{10, 22}, [2]int{40, 52}, [2]int{70, 82})
	lines := SplitLines(img)
	require.Len(t, lines, 3)
	assert.Equal(t, image.Rect(0, 8, 200, 24), lines[0])
	assert.Equal(t, image.Rect(0, 38, 200, 54), lines[1])
	assert.Equal(t, image.Rect(0, 68, 200, 84), lines[2])
}

func TestSplitLines_IgnoresThinNoiseAndMergesSmallGaps(t *testing.T) {
	img := stripes(200, 60, [2]int{5, 7}, [2]int{20, 26}, [2]int{27, 32})
	lines := SplitLines(img)
	require.Len(t, lines, 1)
	assert.Equal(t, image.Rect(0, 18, 200, 34), lines[0])
}

func TestSplitLines_BlankImage(t *testing.T) {
	img := stripes(50, 40)
	assert.Equal(t, []image.Rectangle{img.Bounds()}, SplitLines(img))
}

func TestSplitLines_OffsetBounds(t *testing.T) {
	full := stripes(200, 100, [2]int{60, 72})
	sub := full.SubImage(image.Rect(0, 50, 200, 100))
	lines := SplitLines(sub)
	require.Len(t, lines, 1)
	assert.Equal(t, image.Rect(0, 58, 200, 74), lines[0])
}

func TestSplitColumns(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 300, 20))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, span := range [][2]int{{10, 60}, {65, 100}, {180, 250}} {
		for y := 5; y < 15; y++ {
			for x := span[0]; x < span[1]; x++ {
				img.SetGray(x, y, color.Gray{})
			}
		}
	}

	blocks := SplitColumns(img, img.Bounds())
	require.Len(t, blocks, 2)
	assert.Equal(t, image.Rect(8, 0, 102, 20), blocks[0])
	assert.Equal(t, image.Rect(178, 0, 252, 20), blocks[1])
}

func TestRuns(t *testing.T) {
	on := []bool{false, true, true, false, false, true, false, false, false, false, true}
	assert.Equal(t, [][2]int{{1, 6}, {10, 11}}, runs(on, 2))
	assert.Equal(t, [][2]int{{1, 3}, {5, 6}, {10, 11}}, runs(on, 1))
	assert.Empty(t, runs([]bool{false, false}, 2))
}
