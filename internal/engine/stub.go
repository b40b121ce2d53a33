package engine

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/moduleinfo"
)

const (
	stubSegmentSamples = 16000 * 5 // one stub segment per 5s of audio
	stubConfidence     = 0.42
)

// StubBackend produces deterministic transcripts without invoking Whisper.
type StubBackend struct {
	log    *zap.Logger
	loaded atomic.Int64
}

// NewStubBackend returns a Backend that generates placeholder transcripts.
func NewStubBackend(logger *zap.Logger) *StubBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubBackend{
		log: logger.With(
			zap.String("component", "engine.stub"),
			zap.String("library", moduleinfo.Info.Name),
		),
	}
}

// LoadedModels returns how many stub models are currently open.
func (b *StubBackend) LoadedModels() int64 { return b.loaded.Load() }

func (b *StubBackend) LoadModel(path string, opts ModelOptions) (Model, error) {
	b.loaded.Add(1)
	b.log.Debug("stub model loaded", zap.String("model_path", path), zap.Bool("use_gpu", opts.UseGPU))
	return &stubModel{backend: b, path: path}, nil
}

type stubModel struct {
	backend *StubBackend
	path    string
	closed  atomic.Bool
}

func (m *stubModel) NewState() (State, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("stub: model %s is closed", m.path)
	}
	return &stubState{log: m.backend.log}, nil
}

func (m *stubModel) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.backend.loaded.Add(-1)
	}
	return nil
}

type stubState struct {
	log      *zap.Logger
	language string
	segments []RawSegment
}

// Run emits one segment per five seconds of audio, timed in centiseconds.
func (s *stubState) Run(params InferenceParams, samples []float32) error {
	s.language = params.Language
	s.segments = s.segments[:0]
	for offset, n := 0, 0; offset < len(samples); offset, n = offset+stubSegmentSamples, n+1 {
		end := min(offset+stubSegmentSamples, len(samples))
		s.segments = append(s.segments, RawSegment{
			T0:         int64(offset) * 100 / 16000,
			T1:         int64(end) * 100 / 16000,
			Text:       fmt.Sprintf(" [stub] segment %d: %d samples", n, end-offset),
			Confidence: stubConfidence,
		})
	}
	s.log.Debug("stub transcript", zap.Int("samples", len(samples)), zap.Int("segments", len(s.segments)))
	return nil
}

func (s *stubState) NumSegments() int { return len(s.segments) }

func (s *stubState) Segment(i int) (RawSegment, error) {
	if i < 0 || i >= len(s.segments) {
		return RawSegment{}, fmt.Errorf("stub: segment %d out of range", i)
	}
	return s.segments[i], nil
}

func (s *stubState) DetectLanguage() (string, error) {
	if isAuto(s.language) {
		return fallbackLanguage, nil
	}
	return s.language, nil
}

func (s *stubState) Close() error { return nil }
