// Package onnx holds the onnxruntime plumbing shared by recognition engines:
// runtime discovery, GPU session options and input tensors.
package onnx

import (
	"errors"
	"fmt"
)

// Tensor is a float32 tensor in row-major order, NCHW for images.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// NewImageTensor wraps CHW data as a single-image [1, C, H, W] tensor.
func NewImageTensor(data []float32, c, h, w int) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	if want := c * h * w; len(data) != want {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), want)
	}
	t := Tensor{Data: data, Shape: []int64{1, int64(c), int64(h), int64(w)}}
	if err := t.Verify(); err != nil {
		return Tensor{}, err
	}
	return t, nil
}

// Verify checks that the shape is a positive NCHW shape matching the data.
func (t Tensor) Verify() error {
	if len(t.Shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(t.Shape))
	}
	n := int64(1)
	for i, v := range t.Shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
		n *= v
	}
	if int64(len(t.Data)) != n {
		return fmt.Errorf("tensor data length %d != expected %d for shape %v", len(t.Data), n, t.Shape)
	}
	return nil
}
