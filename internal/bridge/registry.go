package bridge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/audio"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/engine"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/telemetry"
)

var errNotInitialized error = &coreerr.Error{
	Kind: coreerr.ContextInit,
	Msg:  "no engine initialized, call whisper_core_init first",
}

// BackendFactory picks a backend for a configuration.
type BackendFactory func(config.Config, *zap.Logger) (engine.Backend, error)

// Registry holds at most one engine. Every method locks for its whole
// duration, so calls are strictly serialised, model loading included.
type Registry struct {
	mu  sync.Mutex
	eng *engine.Engine

	base     *zap.Logger
	log      *zap.Logger
	recorder *telemetry.Recorder
	backends BackendFactory
	defaults func() (config.Config, error)
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.log = logger
		}
	}
}

func WithRecorder(recorder *telemetry.Recorder) RegistryOption {
	return func(r *Registry) { r.recorder = recorder }
}

// WithBackendFactory overrides backend selection, mainly for tests.
func WithBackendFactory(factory BackendFactory) RegistryOption {
	return func(r *Registry) {
		if factory != nil {
			r.backends = factory
		}
	}
}

// WithDefaults overrides the configuration used by InitDefault.
func WithDefaults(load func() (config.Config, error)) RegistryOption {
	return func(r *Registry) {
		if load != nil {
			r.defaults = load
		}
	}
}

// NewRegistry returns an empty registry. InitDefault reads configuration
// through config.Loader unless overridden.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		log:      zap.NewNop(),
		backends: engine.NewBackend,
		defaults: config.Loader{}.Load,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.base = r.log
	r.log = r.base.With(zap.String("component", "bridge.Registry"))
	return r
}

// Init converts a foreign configuration and initialises a new engine with it.
// A nil configuration is an invalid parameter.
func (r *Registry) Init(fc *ForeignConfig) (code ResultCode, err error) {
	defer r.recoverCode("init", &code, &err, Error)

	if fc == nil {
		err = invalidParameter("config is NULL")
		return InvalidParameter, err
	}
	cfg, err := ConfigFromForeign(*fc)
	if err != nil {
		return initCode(err), err
	}
	return r.initLocked(cfg)
}

// InitDefault initialises an engine from the default configuration sources.
func (r *Registry) InitDefault() (code ResultCode, err error) {
	defer r.recoverCode("init_default", &code, &err, Error)

	cfg, err := r.defaults()
	if err != nil {
		return initCode(err), err
	}
	return r.initLocked(cfg)
}

// InitConfig initialises an engine from cfg.
func (r *Registry) InitConfig(cfg config.Config) (code ResultCode, err error) {
	defer r.recoverCode("init_config", &code, &err, Error)
	return r.initLocked(cfg)
}

func (r *Registry) initLocked(cfg config.Config) (ResultCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return initCode(err), err
	}
	backend, err := r.backends(cfg, r.base)
	if err != nil {
		return initCode(err), err
	}
	eng := engine.New(cfg, backend, engine.WithLogger(r.base), engine.WithRecorder(r.recorder))
	if err := eng.Initialize(); err != nil {
		r.log.Warn("engine initialization failed; keeping previous engine", zap.Error(err))
		return initCode(err), err
	}

	if r.eng != nil {
		r.eng.Shutdown()
	}
	r.eng = eng
	r.log.Info("engine ready", zap.String("model_path", eng.ModelPath()))
	return Success, nil
}

// Transcribe runs the current engine over samples, which are only read
// during the call.
func (r *Registry) Transcribe(samples []float32, sampleRate uint32) (rec Record) {
	defer r.recoverRecord("transcribe", &rec)

	if len(samples) == 0 {
		return RecordFromError(InvalidParameter, invalidParameter("samples are NULL or empty"))
	}
	if sampleRate == 0 {
		return RecordFromError(InvalidParameter, invalidParameter("sample rate must be positive"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eng == nil {
		return RecordFromError(NotInitialized, errNotInitialized)
	}
	res, err := r.eng.Transcribe(audio.FromSamples(samples, sampleRate))
	if err != nil {
		return RecordFromError(transcribeCode(err), err)
	}
	return RecordFromResult(res)
}

// TranscribeFile transcribes a WAV file. Decoding failures are reported as
// TranscriptionFailed.
func (r *Registry) TranscribeFile(path NullString) (rec Record) {
	defer r.recoverRecord("transcribe_file", &rec)

	if !path.Valid {
		return RecordFromError(InvalidParameter, invalidParameter("path is NULL"))
	}
	if err := validPath(path.Value); err != nil {
		return RecordFromError(InvalidParameter, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eng == nil {
		return RecordFromError(NotInitialized, errNotInitialized)
	}
	res, err := r.eng.TranscribeFile(path.Value)
	if err != nil {
		return RecordFromError(transcribeCode(err), err)
	}
	return RecordFromResult(res)
}

// Shutdown releases the current engine, if any.
func (r *Registry) Shutdown() {
	defer r.recoverCode("shutdown", nil, nil, Error)

	r.mu.Lock()
	eng := r.eng
	r.eng = nil
	r.mu.Unlock()

	if eng != nil {
		eng.Shutdown()
		r.log.Info("engine shut down")
	}
}

func (r *Registry) IsInitialized() (ok bool) {
	defer r.recoverCode("is_initialized", nil, nil, Error)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eng != nil && r.eng.IsInitialized()
}

// recoverCode turns a panic into an FFI error so it never unwinds into the
// host.
func (r *Registry) recoverCode(op string, code *ResultCode, err *error, fallback ResultCode) {
	rec := recover()
	if rec == nil {
		return
	}
	perr := coreerr.New(coreerr.FFI, "panic in %s: %v", op, rec)
	r.log.Error("recovered panic", zap.String("op", op), zap.Any("panic", rec))
	if code != nil {
		*code = fallback
	}
	if err != nil {
		*err = perr
	}
}

func (r *Registry) recoverRecord(op string, out *Record) {
	rec := recover()
	if rec == nil {
		return
	}
	r.log.Error("recovered panic", zap.String("op", op), zap.Any("panic", rec))
	*out = RecordFromError(TranscriptionFailed, coreerr.New(coreerr.FFI, "panic in %s: %v", op, rec))
}
