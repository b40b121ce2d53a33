package engine

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/audio"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/moduleinfo"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/telemetry"
)

// ErrNotInitialized is returned by Transcribe before a successful Initialize.
var ErrNotInitialized error = &coreerr.Error{
	Kind: coreerr.ContextInit,
	Msg:  "engine not initialized, call Initialize first",
}

// Engine transcribes audio with a model loaded through a Backend. It is
// safe for concurrent use; calls are serialised on an internal mutex.
type Engine struct {
	mu sync.Mutex

	cfg      config.Config
	backend  Backend
	log      *zap.Logger
	recorder *telemetry.Recorder
	now      func() time.Time

	handle    *modelHandle
	modelPath string
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.log = logger
		}
	}
}

// WithRecorder attaches a telemetry recorder.
func WithRecorder(recorder *telemetry.Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithClock overrides the clock used for processing-time measurement.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an uninitialised engine.
func New(cfg config.Config, backend Backend, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		backend: backend,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(zap.String("component", "engine"))
	return e
}

// Initialize resolves the model path and loads the model. An already
// initialised engine releases its current model first.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil {
		return coreerr.New(coreerr.ContextInit, "no backend configured")
	}

	path, err := e.cfg.ResolveModelPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return coreerr.Wrap(coreerr.ModelNotFound, err, path)
		}
		return coreerr.Wrap(coreerr.IO, err, "stat model")
	}

	e.releaseLocked()

	e.log.Info("loading model",
		zap.String("model_path", path),
		zap.Stringer("model_size", e.cfg.ModelSize),
		zap.Bool("use_gpu", e.cfg.UseGPU),
	)
	start := e.now()
	model, err := e.backend.LoadModel(path, ModelOptions{
		UseGPU:         e.cfg.UseGPU,
		FlashAttention: e.cfg.FlashAttention,
	})
	e.recorder.RecordInitialization(path, e.now().Sub(start), err)
	if err != nil {
		return coreerr.Wrap(coreerr.ContextInit, err, "load "+path)
	}

	e.handle = newModelHandle(e, model, e.log)
	e.modelPath = path
	return nil
}

// Transcribe runs inference over buf. Empty audio yields an empty result
// without touching the backend.
func (e *Engine) Transcribe(buf audio.Buffer) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return Result{}, ErrNotInitialized
	}
	if buf.IsEmpty() {
		return Result{}, nil
	}

	metrics := e.recorder.StartTranscription("buffer",
		moduleinfo.ResultMetadata(e.cfg.ModelSize.String(), e.cfg.Language.Source))
	metrics.RecordAudio(buf.Len(), buf.SampleRate(), buf.DurationMillis())

	res, err := e.transcribeLocked(buf, metrics)
	metrics.Finish(res.Language, err)
	return res, err
}

func (e *Engine) transcribeLocked(buf audio.Buffer, metrics *telemetry.TranscriptionMetrics) (Result, error) {
	start := e.now()
	audioMillis := buf.DurationMillis()

	resampled, err := buf.Resample(audio.WhisperSampleRate)
	if err != nil {
		return Result{}, err
	}
	samples := resampled.Samples()
	if limit := int(e.cfg.MaxDurationSeconds) * audio.WhisperSampleRate; limit > 0 && len(samples) > limit {
		e.log.Warn("audio exceeds maximum duration; truncating",
			zap.Uint64("audio_ms", audioMillis),
			zap.Uint32("max_duration_seconds", e.cfg.MaxDurationSeconds),
		)
		samples = samples[:limit]
	}
	if len(samples) == 0 {
		// a handful of samples at a high rate can round down to nothing
		e.log.Debug("audio too short after resampling", zap.Int("samples", buf.Len()))
		return Result{AudioDurationMs: audioMillis}, nil
	}

	state, err := e.handle.model.NewState()
	if err != nil {
		return Result{}, coreerr.Wrap(coreerr.Transcription, err, "create state")
	}
	defer func() {
		if cerr := state.Close(); cerr != nil {
			e.log.Warn("close state", zap.Error(cerr))
		}
	}()

	params := e.inferenceParams()
	if err := state.Run(params, samples); err != nil {
		return Result{}, coreerr.Wrap(coreerr.Transcription, err, "run inference")
	}

	var (
		text     strings.Builder
		segments []Segment
	)
	for i := 0; i < state.NumSegments(); i++ {
		raw, err := state.Segment(i)
		if err != nil {
			return Result{}, coreerr.Wrap(coreerr.Transcription, err, "read segment")
		}
		if suppressed(raw.Text, params) {
			continue
		}
		seg := NewSegment(raw.T0*10, raw.T1*10, strings.TrimSpace(raw.Text), raw.Confidence)
		segments = append(segments, seg)
		text.WriteString(raw.Text)
		metrics.RecordSegment(seg.StartMs, seg.EndMs, seg.Text)
	}

	language := params.Language
	if isAuto(language) {
		language = fallbackLanguage
		if detected, err := state.DetectLanguage(); err != nil {
			e.log.Debug("language detection failed; assuming english", zap.Error(err))
		} else if detected = strings.TrimSpace(detected); detected != "" {
			language = detected
		}
	}

	elapsed := e.now().Sub(start)
	res := Result{
		Text:             strings.TrimSpace(text.String()),
		Segments:         segments,
		Language:         language,
		ProcessingTimeMs: uint64(max(elapsed.Milliseconds(), 0)),
		AudioDurationMs:  audioMillis,
	}
	e.log.Info("transcription complete",
		zap.Int("chars", len(res.Text)),
		zap.Int("segments", len(res.Segments)),
		zap.Uint64("processing_ms", res.ProcessingTimeMs),
		zap.Float64("rtf", res.RealTimeFactor()),
	)
	return res, nil
}

func (e *Engine) inferenceParams() InferenceParams {
	return InferenceParams{
		Language:          normaliseLanguage(e.cfg.Language.Source, autoLanguage),
		Translate:         e.cfg.Language.TranslateToEnglish,
		Threads:           e.cfg.Threads,
		Temperature:       e.cfg.Temperature,
		TokenTimestamps:   e.cfg.WordTimestamps,
		MaxSegmentLength:  e.cfg.MaxSegmentLength,
		SuppressBlank:     true,
		SuppressNonSpeech: true,
	}
}

// TranscribeFile loads a WAV file and transcribes it.
func (e *Engine) TranscribeFile(path string) (Result, error) {
	buf, err := audio.LoadWAV(path)
	if err != nil {
		return Result{}, err
	}
	return e.Transcribe(buf)
}

// Shutdown releases the model. It is safe to call repeatedly.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
}

// Close implements io.Closer.
func (e *Engine) Close() error {
	e.Shutdown()
	return nil
}

func (e *Engine) IsInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle != nil
}

func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig replaces the configuration and returns the engine to the
// uninitialised state.
func (e *Engine) SetConfig(cfg config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
	e.cfg = cfg
}

// ModelPath returns the path of the loaded model, or "" when uninitialised.
func (e *Engine) ModelPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modelPath
}

func (e *Engine) releaseLocked() {
	if e.handle == nil {
		return
	}
	e.handle.release()
	e.handle = nil
	e.modelPath = ""
}

// modelHandle owns a Model and closes it exactly once, either explicitly or
// when the owning engine becomes unreachable.
type modelHandle struct {
	model   Model
	log     *zap.Logger
	once    sync.Once
	cleanup runtime.Cleanup
}

func newModelHandle(owner *Engine, model Model, logger *zap.Logger) *modelHandle {
	h := &modelHandle{model: model, log: logger}
	h.cleanup = runtime.AddCleanup(owner, func(h *modelHandle) { h.close() }, h)
	return h
}

func (h *modelHandle) release() {
	h.cleanup.Stop()
	h.close()
}

func (h *modelHandle) close() {
	h.once.Do(func() {
		if err := h.model.Close(); err != nil {
			h.log.Warn("close model", zap.Error(err))
		}
	})
}
