// Package bridge holds the engine registry and the Go half of the C boundary:
// converting foreign configuration into config.Config and results or errors
// into flat records.
package bridge

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/engine"
)

// ResultCode is returned to foreign callers.
type ResultCode int32

const (
	Success             ResultCode = 0
	Error               ResultCode = -1
	ModelNotFound       ResultCode = -2
	NotInitialized      ResultCode = -3
	InvalidParameter    ResultCode = -4
	TranscriptionFailed ResultCode = -5
)

func (c ResultCode) String() string {
	switch c {
	case Success:
		return "success"
	case Error:
		return "error"
	case ModelNotFound:
		return "model not found"
	case NotInitialized:
		return "not initialized"
	case InvalidParameter:
		return "invalid parameter"
	case TranscriptionFailed:
		return "transcription failed"
	default:
		return "unknown"
	}
}

// NullString is a foreign string that may be NULL.
type NullString struct {
	Value string
	Valid bool
}

// String returns a non-null NullString.
func String(s string) NullString { return NullString{Value: s, Valid: true} }

// ForeignConfig mirrors the C configuration struct.
type ForeignConfig struct {
	ModelPath NullString
	ModelSize int32
	Language  NullString
	Translate bool
	Threads   uint32
	UseGPU    bool
}

// ErrInvalidParameter marks errors caused by bad foreign arguments.
var ErrInvalidParameter = errors.New("invalid parameter")

func invalidParameter(msg string) error {
	return coreerr.Wrap(coreerr.FFI, ErrInvalidParameter, msg)
}

// IsInvalidParameter reports whether err stems from a bad foreign argument.
func IsInvalidParameter(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

// ConfigFromForeign converts fc into a configuration based on config.Default.
// A NULL path selects the default model location; a NULL or malformed
// language selects auto detection; unknown size codes select base.
func ConfigFromForeign(fc ForeignConfig) (config.Config, error) {
	cfg := config.Default()

	if fc.ModelPath.Valid {
		if !utf8.ValidString(fc.ModelPath.Value) {
			return config.Config{}, invalidParameter("model_path is not valid UTF-8")
		}
		cfg.ModelPath = strings.TrimSpace(fc.ModelPath.Value)
	}
	cfg.ModelSize = config.ModelSizeFromCode(fc.ModelSize)

	cfg.Language.Source = config.DefaultLanguage
	if fc.Language.Valid && utf8.ValidString(fc.Language.Value) {
		if lang := strings.TrimSpace(fc.Language.Value); lang != "" {
			cfg.Language.Source = lang
		}
	}
	cfg.Language.TranslateToEnglish = fc.Translate
	cfg.Threads = fc.Threads
	cfg.UseGPU = fc.UseGPU
	return cfg, nil
}

func validPath(path string) error {
	if !utf8.ValidString(path) {
		return invalidParameter("path is not valid UTF-8")
	}
	if strings.TrimSpace(path) == "" {
		return invalidParameter("path is empty")
	}
	return nil
}

// Record is the Go view of the C result struct.
type Record struct {
	Text             string
	Language         string
	SegmentCount     int32
	ProcessingTimeMs uint64
	AudioDurationMs  uint64
	Code             ResultCode
	ErrorMessage     string
	ErrorKind        int32
}

// RecordFromResult builds a success record.
func RecordFromResult(res engine.Result) Record {
	return Record{
		Text:             res.Text,
		Language:         res.Language,
		SegmentCount:     int32(len(res.Segments)),
		ProcessingTimeMs: res.ProcessingTimeMs,
		AudioDurationMs:  res.AudioDurationMs,
		Code:             Success,
	}
}

// RecordFromError builds a failure record. The message is never empty.
func RecordFromError(code ResultCode, err error) Record {
	msg := code.String()
	if err != nil {
		msg = err.Error()
	}
	return Record{Code: code, ErrorMessage: msg, ErrorKind: coreerr.Code(err)}
}

// initCode maps an Init failure onto a result code.
func initCode(err error) ResultCode {
	if err == nil {
		return Success
	}
	if IsInvalidParameter(err) {
		return InvalidParameter
	}
	switch kind, _ := coreerr.KindOf(err); kind {
	case coreerr.ModelNotFound:
		return ModelNotFound
	case coreerr.Config:
		return InvalidParameter
	default:
		return Error
	}
}

// transcribeCode maps a Transcribe failure onto a result code.
func transcribeCode(err error) ResultCode {
	switch {
	case err == nil:
		return Success
	case IsInvalidParameter(err):
		return InvalidParameter
	case errors.Is(err, errNotInitialized), errors.Is(err, engine.ErrNotInitialized):
		return NotInitialized
	default:
		return TranscriptionFailed
	}
}
