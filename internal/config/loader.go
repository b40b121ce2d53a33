package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
)

// Environment variables understood by Loader.
const (
	EnvConfigFile     = "WHISPER_CORE_CONFIG_FILE"
	EnvModelPath      = "WHISPER_CORE_MODEL_PATH"
	EnvModelSize      = "WHISPER_CORE_MODEL_SIZE"
	EnvModelsDir      = "WHISPER_CORE_MODELS_DIR"
	EnvLanguage       = "WHISPER_CORE_LANGUAGE"
	EnvTranslate      = "WHISPER_CORE_TRANSLATE"
	EnvThreads        = "WHISPER_CORE_THREADS"
	EnvUseGPU         = "WHISPER_CORE_USE_GPU"
	EnvFlashAttention = "WHISPER_CORE_FLASH_ATTENTION"
	EnvUseStubEngine  = "WHISPER_CORE_USE_STUB_ENGINE"
	EnvLogLevel       = "WHISPER_CORE_LOG_LEVEL"
	EnvLogFormat      = "WHISPER_CORE_LOG_FORMAT"
)

// Loader loads configuration from an optional YAML/TOML file and environment
// variables. Tests can override Lookup and ReadFile to inject deterministic
// sources.
type Loader struct {
	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
	// File, when set, takes precedence over WHISPER_CORE_CONFIG_FILE.
	File string
}

// Load builds the configuration: defaults, then the file, then environment
// overrides, then validation.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}

	cfg := Default()

	path := strings.TrimSpace(l.File)
	if path == "" {
		if raw, ok := l.Lookup(EnvConfigFile); ok {
			path = strings.TrimSpace(raw)
		}
	}
	if path != "" {
		if err := l.applyFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(l.Lookup, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fileConfig mirrors Config with plain types; pointer fields distinguish
// "absent" from zero values.
type fileConfig struct {
	ModelPath          string   `yaml:"model_path" toml:"model_path"`
	ModelSize          string   `yaml:"model_size" toml:"model_size"`
	ModelsDir          string   `yaml:"models_dir" toml:"models_dir"`
	Language           string   `yaml:"language" toml:"language"`
	Translate          *bool    `yaml:"translate" toml:"translate"`
	Threads            *uint32  `yaml:"threads" toml:"threads"`
	UseGPU             *bool    `yaml:"use_gpu" toml:"use_gpu"`
	FlashAttention     *bool    `yaml:"flash_attention" toml:"flash_attention"`
	MaxDurationSeconds *uint32  `yaml:"max_duration_seconds" toml:"max_duration_seconds"`
	Temperature        *float32 `yaml:"temperature" toml:"temperature"`
	WordTimestamps     *bool    `yaml:"word_timestamps" toml:"word_timestamps"`
	MaxSegmentLength   *uint32  `yaml:"max_segment_length" toml:"max_segment_length"`
	VADEnabled         *bool    `yaml:"vad_enabled" toml:"vad_enabled"`
	VADThreshold       *float32 `yaml:"vad_threshold" toml:"vad_threshold"`
	UseStubEngine      *bool    `yaml:"use_stub_engine" toml:"use_stub_engine"`
	LogLevel           string   `yaml:"log_level" toml:"log_level"`
	LogFormat          string   `yaml:"log_format" toml:"log_format"`
}

func (l Loader) applyFile(path string, cfg *Config) error {
	data, err := l.ReadFile(path)
	if err != nil {
		return coreerr.Wrap(coreerr.IO, err, "read config file "+path)
	}

	var payload fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return coreerr.Wrap(coreerr.Config, err, "decode "+path)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &payload); err != nil {
			return coreerr.Wrap(coreerr.Config, err, "decode "+path)
		}
	default:
		return coreerr.New(coreerr.Config, "unsupported config file extension %q", filepath.Ext(path))
	}
	return payload.apply(cfg)
}

func (f fileConfig) apply(cfg *Config) error {
	if f.ModelPath != "" {
		cfg.ModelPath = f.ModelPath
	}
	if f.ModelSize != "" {
		size, err := ParseModelSize(f.ModelSize)
		if err != nil {
			return coreerr.Wrap(coreerr.Config, err, "model_size")
		}
		cfg.ModelSize = size
	}
	if f.ModelsDir != "" {
		cfg.ModelsDir = f.ModelsDir
	}
	if f.Language != "" {
		cfg.Language.Source = f.Language
	}
	setIf(f.Translate, &cfg.Language.TranslateToEnglish)
	setIf(f.Threads, &cfg.Threads)
	setIf(f.UseGPU, &cfg.UseGPU)
	setIf(f.FlashAttention, &cfg.FlashAttention)
	setIf(f.MaxDurationSeconds, &cfg.MaxDurationSeconds)
	setIf(f.Temperature, &cfg.Temperature)
	setIf(f.WordTimestamps, &cfg.WordTimestamps)
	setIf(f.MaxSegmentLength, &cfg.MaxSegmentLength)
	setIf(f.VADEnabled, &cfg.VADEnabled)
	setIf(f.VADThreshold, &cfg.VADThreshold)
	setIf(f.UseStubEngine, &cfg.UseStubEngine)
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.LogFormat = f.LogFormat
	}
	return nil
}

func setIf[T any](src *T, dst *T) {
	if src != nil {
		*dst = *src
	}
}

func applyEnv(lookup func(string) (string, bool), cfg *Config) error {
	overrideString(lookup, EnvModelPath, &cfg.ModelPath)
	overrideString(lookup, EnvModelsDir, &cfg.ModelsDir)
	overrideString(lookup, EnvLanguage, &cfg.Language.Source)
	overrideString(lookup, EnvLogLevel, &cfg.LogLevel)
	overrideString(lookup, EnvLogFormat, &cfg.LogFormat)

	if value, ok := lookupTrimmed(lookup, EnvModelSize); ok {
		size, err := ParseModelSize(value)
		if err != nil {
			return coreerr.Wrap(coreerr.Config, err, EnvModelSize)
		}
		cfg.ModelSize = size
	}
	if value, ok := lookupTrimmed(lookup, EnvThreads); ok {
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return coreerr.Wrap(coreerr.Config, err, EnvThreads)
		}
		cfg.Threads = uint32(n)
	}

	bools := []struct {
		key    string
		target *bool
	}{
		{EnvTranslate, &cfg.Language.TranslateToEnglish},
		{EnvUseGPU, &cfg.UseGPU},
		{EnvFlashAttention, &cfg.FlashAttention},
		{EnvUseStubEngine, &cfg.UseStubEngine},
	}
	for _, b := range bools {
		value, ok := lookupTrimmed(lookup, b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return coreerr.Wrap(coreerr.Config, err, fmt.Sprintf("%s=%q", b.key, value))
		}
		*b.target = parsed
	}
	return nil
}

func lookupTrimmed(lookup func(string) (string, bool), key string) (string, bool) {
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookupTrimmed(lookup, key); ok {
		*target = value
	}
}
