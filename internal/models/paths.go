// Package models resolves the on-disk location of recognition models and
// OCR language data.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File names of the bundled PaddleOCR recognition assets.
const (
	RecognitionMobile   = "PP-OCRv5_mobile_rec.onnx"
	DictionaryEnglish   = "en_dict.txt"
	TypeRecognition     = "recognition"
	TypeDictionaries    = "dictionaries"
	TypeTessdata        = "tessdata"
	DefaultModelsDir    = "models"
	EnvModelsDir        = "IDCHECK_MODELS_DIR"
	tessdataPrefixEnvar = "TESSDATA_PREFIX"
)

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root (go.mod not found)")
		}
		dir = parent
	}
}

// GetModelsDir returns modelsDir, else $IDCHECK_MODELS_DIR, else the models
// directory of the project root, else "models".
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if env := os.Getenv(EnvModelsDir); env != "" {
		return env
	}
	if root, err := findProjectRoot(); err == nil {
		return filepath.Join(root, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// ResolveModelPath prefers modelsDir/<kind>/<filename> and falls back to the
// flat modelsDir/<filename> layout.
func ResolveModelPath(modelsDir, kind, filename string) string {
	base := GetModelsDir(modelsDir)
	organized := filepath.Join(base, kind, filename)
	if _, err := os.Stat(organized); err == nil {
		return organized
	}
	return filepath.Join(base, filename)
}

// GetRecognitionModelPath returns the path of the recognition model.
func GetRecognitionModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeRecognition, RecognitionMobile)
}

// GetDictionaryPath returns the path of the recognition dictionary.
func GetDictionaryPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeDictionaries, DictionaryEnglish)
}

// GetTessdataDir returns $TESSDATA_PREFIX when set, else modelsDir/tessdata
// when it exists, else "" to let tesseract use its compiled-in default.
func GetTessdataDir(modelsDir string) string {
	if env := os.Getenv(tessdataPrefixEnvar); env != "" {
		return env
	}
	dir := filepath.Join(GetModelsDir(modelsDir), TypeTessdata)
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return dir
	}
	return ""
}

// ValidateModelExists checks that a model file exists at path.
func ValidateModelExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("model file not found: %s", path)
	}
	return nil
}
