// Package config loads idcheck settings from files, the environment and
// command-line flags, and converts them into the options of each component.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/idcheck/internal/match"
	"github.com/MeKo-Tech/idcheck/internal/models"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/onnx"
	"github.com/MeKo-Tech/idcheck/internal/recognizer"
	"github.com/MeKo-Tech/idcheck/internal/utils"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

// Config represents the complete configuration of idcheck. It covers every
// command (verify, mrz, batch, serve).
type Config struct {
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Recognizer RecognizerConfig `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`
	GPU        GPUConfig        `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	MRZ        MRZConfig        `mapstructure:"mrz" yaml:"mrz" json:"mrz"`
	Match      MatchConfig      `mapstructure:"match" yaml:"match" json:"match"`
	Features   FeatureConfig    `mapstructure:"features" yaml:"features" json:"features"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	Batch      BatchConfig      `mapstructure:"batch" yaml:"batch" json:"batch"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output" json:"output"`
}

// RecognizerConfig selects the OCR engine.
type RecognizerConfig struct {
	Engine      string `mapstructure:"engine" yaml:"engine" json:"engine"`
	DataPath    string `mapstructure:"data_path" yaml:"data_path" json:"data_path"`
	Language    string `mapstructure:"language" yaml:"language" json:"language"`
	ModelPath   string `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	DictPath    string `mapstructure:"dict_path" yaml:"dict_path" json:"dict_path"`
	ImageHeight int    `mapstructure:"image_height" yaml:"image_height" json:"image_height"`
	NumThreads  int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// GPUConfig contains GPU acceleration settings for the ONNX engine.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}

// PreprocessConfig bounds image sizes.
type PreprocessConfig struct {
	MaxWidth      int `mapstructure:"max_width" yaml:"max_width" json:"max_width"`
	MinCropHeight int `mapstructure:"min_crop_height" yaml:"min_crop_height" json:"min_crop_height"`
}

// MRZConfig controls MRZ parsing.
type MRZConfig struct {
	Countries      []string `mapstructure:"countries" yaml:"countries" json:"countries"`
	TolerantPrefix bool     `mapstructure:"tolerant_prefix" yaml:"tolerant_prefix" json:"tolerant_prefix"`
	Sanitize       bool     `mapstructure:"sanitize" yaml:"sanitize" json:"sanitize"`
}

// MatchConfig controls name comparison.
type MatchConfig struct {
	Fuzzy          bool `mapstructure:"fuzzy" yaml:"fuzzy" json:"fuzzy"`
	MaxDistance    int  `mapstructure:"max_distance" yaml:"max_distance" json:"max_distance"`
	MinTokenLength int  `mapstructure:"min_token_length" yaml:"min_token_length" json:"min_token_length"`
}

// FeatureConfig toggles the fallback readers.
type FeatureConfig struct {
	VisualSupplement bool `mapstructure:"visual_supplement" yaml:"visual_supplement" json:"visual_supplement"`
	LabelFallback    bool `mapstructure:"label_fallback" yaml:"label_fallback" json:"label_fallback"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	rc := recognizer.DefaultConfig()
	mo := mrz.DefaultOptions()
	ma := match.DefaultOptions()
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Recognizer: RecognizerConfig{
			Engine:      rc.Engine,
			Language:    rc.Language,
			ImageHeight: rc.ImageHeight,
		},
		GPU: GPUConfig{MemoryLimit: "auto"},
		Preprocess: PreprocessConfig{
			MaxWidth:      utils.DefaultMaxWidth,
			MinCropHeight: utils.DefaultMinHeight,
		},
		MRZ: MRZConfig{
			Countries:      mo.Countries,
			TolerantPrefix: mo.TolerantPrefix,
			Sanitize:       mo.Sanitize,
		},
		Match: MatchConfig{
			Fuzzy:          ma.Fuzzy,
			MaxDistance:    ma.MaxDistance,
			MinTokenLength: ma.MinTokenLength,
		},
		Features: FeatureConfig{VisualSupplement: true},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 30,
				RequestsPerHour:   600,
				MaxRequestsPerDay: 5000,
				MaxDataPerDayMB:   2048,
			},
		},
		Batch:  BatchConfig{Workers: 4},
		Output: OutputConfig{Format: "text"},
	}
}

// Validate validates the configuration and returns the first error found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	validEngines := []string{recognizer.EngineTesseract, recognizer.EngineONNX}
	if !contains(validEngines, strings.ToLower(c.Recognizer.Engine)) {
		return fmt.Errorf("invalid recognizer engine: %s (must be one of: %s)", c.Recognizer.Engine, strings.Join(validEngines, ", "))
	}

	for _, country := range c.MRZ.Countries {
		if len(strings.TrimSpace(country)) != 3 {
			return fmt.Errorf("invalid MRZ country code: %q (must be 3 letters)", country)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.Preprocess.MaxWidth <= 0 {
		return fmt.Errorf("invalid preprocess max width: %d (must be positive)", c.Preprocess.MaxWidth)
	}
	if c.Preprocess.MinCropHeight <= 0 {
		return fmt.Errorf("invalid preprocess min crop height: %d (must be positive)", c.Preprocess.MinCropHeight)
	}
	if c.Match.MaxDistance < 0 {
		return fmt.Errorf("invalid match max distance: %d (must not be negative)", c.Match.MaxDistance)
	}

	if c.GPU.MemoryLimit != "auto" && c.GPU.MemoryLimit != "" {
		if err := validateMemoryLimit(c.GPU.MemoryLimit); err != nil {
			return fmt.Errorf("invalid GPU memory limit: %w", err)
		}
	}

	return nil
}

// ToRecognizerConfig converts to recognizer.Config.
func (c *Config) ToRecognizerConfig(logger *slog.Logger) recognizer.Config {
	cfg := recognizer.DefaultConfig()
	cfg.Engine = strings.ToLower(c.Recognizer.Engine)
	cfg.Language = c.Recognizer.Language
	cfg.DataPath = c.Recognizer.DataPath
	if cfg.DataPath == "" {
		cfg.DataPath = models.GetTessdataDir(c.ModelsDir)
	}
	cfg.ModelPath = models.GetRecognitionModelPath(c.ModelsDir)
	if c.Recognizer.ModelPath != "" {
		cfg.ModelPath = c.Recognizer.ModelPath
	}
	cfg.DictPath = models.GetDictionaryPath(c.ModelsDir)
	if c.Recognizer.DictPath != "" {
		cfg.DictPath = c.Recognizer.DictPath
	}
	if c.Recognizer.ImageHeight > 0 {
		cfg.ImageHeight = c.Recognizer.ImageHeight
	}
	cfg.NumThreads = c.Recognizer.NumThreads
	cfg.GPU = c.toGPUConfig()
	cfg.Logger = logger
	return cfg
}

func (c *Config) toGPUConfig() onnx.GPUConfig {
	cfg := onnx.DefaultGPUConfig()
	cfg.UseGPU = c.GPU.Enabled
	cfg.DeviceID = c.GPU.Device
	if limit, err := parseMemoryLimit(c.GPU.MemoryLimit); err == nil {
		cfg.GPUMemLimit = limit
	}
	return cfg
}

// ToParserOptions converts to mrz.Options.
func (c *Config) ToParserOptions(logger *slog.Logger) mrz.Options {
	return mrz.Options{
		Countries:      c.MRZ.Countries,
		TolerantPrefix: c.MRZ.TolerantPrefix,
		Sanitize:       c.MRZ.Sanitize,
		Logger:         logger,
	}
}

// ToMatchOptions converts to match.Options.
func (c *Config) ToMatchOptions() match.Options {
	return match.Options{
		Fuzzy:          c.Match.Fuzzy,
		MaxDistance:    c.Match.MaxDistance,
		MinTokenLength: c.Match.MinTokenLength,
	}
}

// ToVerifyOptions assembles verifier options around factory.
func (c *Config) ToVerifyOptions(factory recognizer.Factory, logger *slog.Logger) verify.Options {
	return verify.Options{
		Factory:          factory,
		Parser:           mrz.NewParser(c.ToParserOptions(logger)),
		MinHeight:        c.Preprocess.MinCropHeight,
		Match:            c.ToMatchOptions(),
		VisualSupplement: c.Features.VisualSupplement,
		LabelFallback:    c.Features.LabelFallback,
		Logger:           logger,
	}
}

// NewVerifier builds the recognizer factory and the verifier described by c.
func (c *Config) NewVerifier(logger *slog.Logger) (*verify.Verifier, error) {
	factory, err := recognizer.NewFactory(c.ToRecognizerConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to configure recognizer: %w", err)
	}
	return verify.New(c.ToVerifyOptions(factory, logger))
}

// SlogLevel returns the slog level for c, forcing debug when verbose.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

var memoryUnits = []struct {
	suffix string
	factor float64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// validateMemoryLimit validates GPU memory limit format (e.g., "1GB", "512MB").
func validateMemoryLimit(limit string) error {
	_, err := parseMemoryLimit(limit)
	return err
}

// parseMemoryLimit returns the limit in bytes; "auto" and "" mean unlimited.
func parseMemoryLimit(limit string) (uint64, error) {
	if limit == "" || limit == "auto" {
		return 0, nil
	}
	upper := strings.ToUpper(strings.TrimSpace(limit))
	for _, u := range memoryUnits {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(upper, u.suffix), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(n * u.factor), nil
	}
	return 0, fmt.Errorf("memory limit must end with one of: B, KB, MB, GB")
}
