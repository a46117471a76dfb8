package recognizer

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeForRecognition(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 20))

	out, w, h, err := ResizeForRecognition(img, 48, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, 48, h)
	assert.Equal(t, 240, w)
	assert.Equal(t, image.Rect(0, 0, 240, 48), out.Bounds())

	_, w, _, err = ResizeForRecognition(image.NewGray(image.Rect(0, 0, 101, 20)), 48, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, w%8)

	_, w, _, err = ResizeForRecognition(img, 48, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, w)
}

func TestResizeForRecognition_Errors(t *testing.T) {
	_, _, _, err := ResizeForRecognition(nil, 48, 0, 0)
	assert.Error(t, err)
	_, _, _, err = ResizeForRecognition(image.NewGray(image.Rect(0, 0, 4, 4)), 0, 0, 0)
	assert.Error(t, err)
	_, _, _, err = ResizeForRecognition(image.NewGray(image.Rect(0, 0, 0, 4)), 48, 0, 0)
	assert.Error(t, err)
}
