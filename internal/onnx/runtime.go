package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	onnxrt "github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath overrides the onnxruntime shared library location.
const EnvLibraryPath = "IDCHECK_ONNXRUNTIME_LIB"

var (
	initOnce sync.Once
	initErr  error
)

// Initialize locates the onnxruntime shared library and initializes the
// runtime environment once per process.
func Initialize(useGPU bool) error {
	initOnce.Do(func() {
		path, err := LibraryPath(useGPU)
		if err != nil {
			initErr = err
			return
		}
		onnxrt.SetSharedLibraryPath(path)
		if !onnxrt.IsInitialized() {
			if err := onnxrt.InitializeEnvironment(); err != nil {
				initErr = fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
			}
		}
	})
	return initErr
}

// LibraryPath resolves the shared library from the environment, the system
// locations, then the project-local onnxruntime directory.
func LibraryPath(useGPU bool) (string, error) {
	if p := os.Getenv(EnvLibraryPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("ONNX Runtime library from %s: %w", EnvLibraryPath, err)
		}
		return p, nil
	}

	libName, err := libraryName(runtime.GOOS)
	if err != nil {
		return "", err
	}

	for _, p := range systemLibraryPaths(libName, useGPU) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	root, err := findProjectRoot()
	if err != nil {
		return "", err
	}
	candidates := []string{filepath.Join(root, "onnxruntime", "lib", libName)}
	if useGPU {
		candidates = append([]string{filepath.Join(root, "onnxruntime", "gpu", "lib", libName)}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("ONNX Runtime library not found at %s", candidates[len(candidates)-1])
}

func systemLibraryPaths(libName string, useGPU bool) []string {
	paths := []string{
		filepath.Join("/usr/local/lib", libName),
		filepath.Join("/usr/lib", libName),
		filepath.Join("/opt/onnxruntime/cpu/lib", libName),
	}
	if useGPU {
		paths = append([]string{filepath.Join("/opt/onnxruntime/gpu/lib", libName)}, paths...)
	}
	return paths
}

func libraryName(goos string) (string, error) {
	switch goos {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root")
		}
		dir = parent
	}
}
