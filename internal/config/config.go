package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/logging"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/moduleinfo"
)

const (
	DefaultLanguage           = "auto"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = logging.FormatConsole
	DefaultMaxDurationSeconds = 300
	DefaultVADThreshold       = 0.5

	// ModelsSubdir is appended to <app support dir>/<app name>.
	ModelsSubdir = "Models"
)

// LanguageConfig selects the source language and optional translation.
type LanguageConfig struct {
	// Source is an ISO code such as "en" or "auto" for detection.
	Source             string
	TranslateToEnglish bool
}

// Config captures everything needed to initialise a transcription engine.
type Config struct {
	ModelPath string
	ModelSize ModelSize
	// ModelsDir overrides the platform default models directory.
	ModelsDir string
	Language  LanguageConfig
	// Threads of 0 lets the backend decide.
	Threads            uint32
	UseGPU             bool
	FlashAttention     bool
	MaxDurationSeconds uint32
	Temperature        float32
	WordTimestamps     bool
	MaxSegmentLength   uint32
	VADEnabled         bool
	VADThreshold       float32
	UseStubEngine      bool
	LogLevel           string
	LogFormat          string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ModelSize:          ModelBase,
		Language:           LanguageConfig{Source: DefaultLanguage},
		UseGPU:             true,
		FlashAttention:     true,
		MaxDurationSeconds: DefaultMaxDurationSeconds,
		VADEnabled:         true,
		VADThreshold:       DefaultVADThreshold,
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
	}
}

// WithModelPath returns the default configuration pointing at path.
func WithModelPath(path string) Config {
	cfg := Default()
	cfg.ModelPath = path
	return cfg
}

// WithModelSize returns the default configuration for size.
func WithModelSize(size ModelSize) Config {
	cfg := Default()
	cfg.ModelSize = size
	return cfg
}

// IsAutoLanguage reports whether the language should be detected.
func (c Config) IsAutoLanguage() bool {
	lang := strings.TrimSpace(c.Language.Source)
	return lang == "" || strings.EqualFold(lang, DefaultLanguage)
}

// Validate applies defaults and rejects out-of-range values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Language.Source) == "" {
		c.Language.Source = DefaultLanguage
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if !c.ModelSize.Valid() {
		return coreerr.New(coreerr.Config, "unknown model size %d", int(c.ModelSize))
	}
	if c.Temperature < 0 {
		return coreerr.New(coreerr.Config, "temperature must be >= 0, got %g", c.Temperature)
	}
	if c.VADThreshold < 0 || c.VADThreshold > 1 {
		return coreerr.New(coreerr.Config, "vad_threshold must be within [0,1], got %g", c.VADThreshold)
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return coreerr.New(coreerr.Config, "log_format must be %q or %q, got %q", logging.FormatConsole, logging.FormatJSON, c.LogFormat)
	}
	return nil
}

// ResolveModelPath returns the explicit model path, or the default location
// derived from the model size.
func (c Config) ResolveModelPath() (string, error) {
	if path := strings.TrimSpace(c.ModelPath); path != "" {
		return path, nil
	}
	dir := strings.TrimSpace(c.ModelsDir)
	if dir == "" {
		var err error
		dir, err = DefaultModelsDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, c.ModelSize.Filename()), nil
}

// DefaultModelsDir is <platform app support dir>/<app name>/Models.
func DefaultModelsDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", coreerr.Wrap(coreerr.Config, err, "locate application support directory")
	}
	return filepath.Join(base, moduleinfo.Info.AppName, ModelsSubdir), nil
}

func (c Config) String() string {
	return fmt.Sprintf("model=%s size=%s language=%s translate=%t threads=%d gpu=%t",
		c.ModelPath, c.ModelSize, c.Language.Source, c.Language.TranslateToEnglish, c.Threads, c.UseGPU)
}
