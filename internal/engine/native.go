//go:build whispercpp

package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"
)

func NativeAvailable() bool { return true }

// NativeBackend loads ggml models through the whisper.cpp Go bindings.
type NativeBackend struct {
	log *zap.Logger
}

// NewNativeBackend returns the whisper.cpp backend.
func NewNativeBackend(logger *zap.Logger) (*NativeBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NativeBackend{log: logger.With(zap.String("component", "engine.native"))}, nil
}

func (b *NativeBackend) LoadModel(path string, opts ModelOptions) (Model, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("whisper: model path required")
	}
	// the bindings load with whisper.cpp's default context params, so the GPU
	// and flash-attention switches are informational here
	b.log.Debug("loading ggml model",
		zap.String("model_path", path),
		zap.Bool("use_gpu", opts.UseGPU),
		zap.Bool("flash_attention", opts.FlashAttention),
	)
	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("whisper: load %s: %w", path, err)
	}
	return &nativeModel{model: model, log: b.log}, nil
}

type nativeModel struct {
	model whisper.Model
	log   *zap.Logger
}

func (m *nativeModel) NewState() (State, error) {
	ctx, err := m.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: new context: %w", err)
	}
	return &nativeState{ctx: ctx, multilingual: m.model.IsMultilingual(), log: m.log}, nil
}

func (m *nativeModel) Close() error {
	return m.model.Close()
}

type nativeState struct {
	ctx          whisper.Context
	multilingual bool
	log          *zap.Logger
	segments     []RawSegment
}

func (s *nativeState) Run(params InferenceParams, samples []float32) error {
	if len(samples) == 0 {
		return errors.New("whisper: no samples")
	}
	s.apply(params)

	if err := s.ctx.Process(samples, nil, nil, nil); err != nil {
		return fmt.Errorf("whisper: inference failed: %w", err)
	}

	s.segments = s.segments[:0]
	for {
		seg, err := s.ctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("whisper: read segment: %w", err)
		}
		s.segments = append(s.segments, RawSegment{
			T0:         centiseconds(seg.Start),
			T1:         centiseconds(seg.End),
			Text:       seg.Text,
			Confidence: meanTokenProbability(seg.Tokens),
		})
	}
	return nil
}

func (s *nativeState) apply(params InferenceParams) {
	lang := normaliseLanguage(params.Language, autoLanguage)
	if !s.multilingual && lang != fallbackLanguage {
		// english-only models reject every other language, detection included
		lang = fallbackLanguage
	}
	if err := s.ctx.SetLanguage(lang); err != nil {
		s.log.Warn("unsupported language; falling back to auto", zap.String("language", lang), zap.Error(err))
		if s.multilingual {
			_ = s.ctx.SetLanguage(autoLanguage)
		}
	}
	s.ctx.SetTranslate(params.Translate && s.multilingual)
	if params.Threads > 0 {
		s.ctx.SetThreads(uint(params.Threads))
	}
	s.ctx.SetTemperature(params.Temperature)
	s.ctx.SetTokenTimestamps(params.TokenTimestamps)
	if params.MaxSegmentLength > 0 {
		s.ctx.SetMaxSegmentLength(uint(params.MaxSegmentLength))
	}
}

func (s *nativeState) NumSegments() int { return len(s.segments) }

func (s *nativeState) Segment(i int) (RawSegment, error) {
	if i < 0 || i >= len(s.segments) {
		return RawSegment{}, fmt.Errorf("whisper: segment %d out of range [0,%d)", i, len(s.segments))
	}
	return s.segments[i], nil
}

func (s *nativeState) DetectLanguage() (string, error) {
	lang := strings.TrimSpace(s.ctx.DetectedLanguage())
	if lang == "" {
		return "", errors.New("whisper: no language detected")
	}
	return lang, nil
}

// Contexts are owned by the model and freed with it.
func (s *nativeState) Close() error {
	s.segments = nil
	return nil
}

func centiseconds(d time.Duration) int64 {
	return int64(d / (10 * time.Millisecond))
}

func meanTokenProbability(tokens []whisper.Token) float32 {
	var (
		sum float64
		n   int
	)
	for _, tok := range tokens {
		if tok.P > 0 {
			sum += float64(tok.P)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / float64(n))
}
