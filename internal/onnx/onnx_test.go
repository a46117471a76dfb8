package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageTensor(t *testing.T) {
	ten, err := NewImageTensor(make([]float32, 3*4*5), 3, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 5}, ten.Shape)
	assert.NoError(t, ten.Verify())

	_, err = NewImageTensor(make([]float32, 10), 3, 4, 5)
	assert.Error(t, err)
	_, err = NewImageTensor(nil, 1, 1, 1)
	assert.Error(t, err)
	_, err = NewImageTensor([]float32{}, 3, 0, 5)
	assert.ErrorContains(t, err, "dimension 2")
}

func TestTensorVerify(t *testing.T) {
	assert.Error(t, Tensor{Data: make([]float32, 4), Shape: []int64{2, 2}}.Verify())
	assert.Error(t, Tensor{Data: make([]float32, 4), Shape: []int64{1, 1, 0, 4}}.Verify())
	assert.Error(t, Tensor{Data: make([]float32, 3), Shape: []int64{1, 1, 2, 2}}.Verify())
}

func TestGPUConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     GPUConfig
		wantErr bool
	}{
		{"cpu", DefaultGPUConfig(), false},
		{"gpu", GPUConfig{UseGPU: true, ArenaExtendStrategy: "kSameAsRequested"}, false},
		{"negative device", GPUConfig{UseGPU: true, DeviceID: -1}, true},
		{"bad strategy", GPUConfig{UseGPU: true, ArenaExtendStrategy: "grow"}, true},
		{"bad strategy ignored on cpu", GPUConfig{ArenaExtendStrategy: "grow"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				assert.Error(t, tt.cfg.Validate())
			} else {
				assert.NoError(t, tt.cfg.Validate())
			}
		})
	}
}

func TestCUDASettings(t *testing.T) {
	s := GPUConfig{UseGPU: true, DeviceID: 1, GPUMemLimit: 1 << 30}.cudaSettings()
	assert.Equal(t, "1", s["device_id"])
	assert.Equal(t, "1073741824", s["gpu_mem_limit"])
	assert.NotContains(t, s, "arena_extend_strategy")
}

func TestLibraryName(t *testing.T) {
	name, err := libraryName("linux")
	require.NoError(t, err)
	assert.Equal(t, "libonnxruntime.so", name)
	_, err = libraryName("plan9")
	assert.Error(t, err)
}

func TestLibraryPath_EnvOverride(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(lib, []byte{0}, 0o600))
	t.Setenv(EnvLibraryPath, lib)

	got, err := LibraryPath(false)
	require.NoError(t, err)
	assert.Equal(t, lib, got)

	t.Setenv(EnvLibraryPath, filepath.Join(t.TempDir(), "missing.so"))
	_, err = LibraryPath(false)
	assert.Error(t, err)
}

func TestSystemLibraryPaths_GPUFirst(t *testing.T) {
	paths := systemLibraryPaths("libonnxruntime.so", true)
	assert.Equal(t, "/opt/onnxruntime/gpu/lib/libonnxruntime.so", paths[0])
	assert.Len(t, systemLibraryPaths("libonnxruntime.so", false), 3)
}
