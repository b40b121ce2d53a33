package engine

import (
	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
)

// ErrNativeEngineUnavailable indicates that the binary was built without the
// whispercpp tag.
var ErrNativeEngineUnavailable error = &coreerr.Error{
	Kind: coreerr.ModelLoad,
	Msg:  "native whisper backend unavailable; rebuild with -tags whispercpp",
}

// NewBackend picks the backend for cfg: the stub when forced by
// configuration, otherwise the native whisper.cpp backend.
func NewBackend(cfg config.Config, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.UseStubEngine {
		logger.Warn("stub engine forced by configuration")
		return NewStubBackend(logger), nil
	}

	if !NativeAvailable() {
		logger.Error("native backend disabled at build time")
		return nil, ErrNativeEngineUnavailable
	}

	native, err := NewNativeBackend(logger)
	if err != nil {
		return nil, err
	}
	return native, nil
}

// NewFromConfig builds an engine with the backend selected by NewBackend.
func NewFromConfig(cfg config.Config, logger *zap.Logger, opts ...Option) (*Engine, error) {
	backend, err := NewBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, backend, append([]Option{WithLogger(logger)}, opts...)...), nil
}
