package telemetry

import (
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder tracks engine-level counters shared by every transcription.
type Recorder struct {
	log *zap.Logger
	now func() time.Time

	totalInitializations  atomic.Uint64
	failedInitializations atomic.Uint64
	totalTranscriptions   atomic.Uint64
	failedTranscriptions  atomic.Uint64
	activeTranscriptions  atomic.Int64
	totalSegments         atomic.Uint64
	totalAudioMillis      atomic.Uint64
	totalProcessingMillis atomic.Uint64
}

// Snapshot captures cumulative metrics recorded so far.
type Snapshot struct {
	TotalInitializations  uint64
	FailedInitializations uint64
	TotalTranscriptions   uint64
	FailedTranscriptions  uint64
	ActiveTranscriptions  int64
	TotalSegments         uint64
	TotalAudioMillis      uint64
	TotalProcessingMillis uint64
}

// RealTimeFactor is processing time over audio time across all transcriptions.
func (s Snapshot) RealTimeFactor() float64 {
	if s.TotalAudioMillis == 0 {
		return 0
	}
	return float64(s.TotalProcessingMillis) / float64(s.TotalAudioMillis)
}

// NewRecorder constructs a Recorder using the provided logger.
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		log: logger.With(zap.String("component", "telemetry.Recorder")),
		now: time.Now,
	}
}

// Snapshot returns an immutable view of the recorder totals.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		TotalInitializations:  r.totalInitializations.Load(),
		FailedInitializations: r.failedInitializations.Load(),
		TotalTranscriptions:   r.totalTranscriptions.Load(),
		FailedTranscriptions:  r.failedTranscriptions.Load(),
		ActiveTranscriptions:  r.activeTranscriptions.Load(),
		TotalSegments:         r.totalSegments.Load(),
		TotalAudioMillis:      r.totalAudioMillis.Load(),
		TotalProcessingMillis: r.totalProcessingMillis.Load(),
	}
}

// RecordInitialization logs a model load attempt.
func (r *Recorder) RecordInitialization(modelPath string, took time.Duration, err error) {
	if r == nil {
		return
	}
	r.totalInitializations.Add(1)
	fields := []zap.Field{
		zap.String("model_path", modelPath),
		zap.Int64("duration_ms", took.Milliseconds()),
	}
	if err != nil {
		r.failedInitializations.Add(1)
		r.log.Error("engine initialization failed", append(fields, zap.Error(err))...)
		return
	}
	r.log.Info("engine initialized", fields...)
}

// TranscriptionMetrics accumulates statistics for a single transcription.
type TranscriptionMetrics struct {
	recorder *Recorder
	log      *zap.Logger

	started time.Time

	audioMillis uint64
	segments    int
	chars       int
	runes       int
	closed      atomic.Bool
}

// StartTranscription registers a transcription in flight and tags it with a
// fresh id.
func (r *Recorder) StartTranscription(source string, metadata map[string]string) *TranscriptionMetrics {
	if r == nil {
		return nil
	}

	id := uuid.NewString()
	logger := r.log.With(
		zap.String("transcription_id", id),
		zap.String("source", source),
	)
	if len(metadata) > 0 {
		logger = logger.With(zap.Any("metadata", cloneMetadata(metadata)))
	}

	r.totalTranscriptions.Add(1)
	r.activeTranscriptions.Add(1)

	return &TranscriptionMetrics{
		recorder: r,
		log:      logger,
		started:  r.now(),
	}
}

// RecordAudio stores the input size.
func (m *TranscriptionMetrics) RecordAudio(samples int, sampleRate uint32, durationMillis uint64) {
	if m == nil {
		return
	}
	m.audioMillis = durationMillis
	m.log.Debug("audio received",
		zap.Int("samples", samples),
		zap.Uint32("sample_rate", sampleRate),
		zap.Uint64("audio_ms", durationMillis),
	)
}

// RecordSegment updates counters for a decoded segment.
func (m *TranscriptionMetrics) RecordSegment(startMs, endMs int64, text string) {
	if m == nil {
		return
	}
	m.segments++
	m.chars += len(text)
	m.runes += utf8.RuneCountInString(text)
	m.recorder.totalSegments.Add(1)

	m.log.Debug("segment decoded",
		zap.Int64("start_ms", startMs),
		zap.Int64("end_ms", endMs),
		zap.Int("runes", utf8.RuneCountInString(text)),
	)
}

// Finish logs a summary and updates the active counter. Only the first call
// has any effect.
func (m *TranscriptionMetrics) Finish(language string, err error) {
	if m == nil {
		return
	}
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	defer m.recorder.activeTranscriptions.Add(-1)

	elapsed := m.recorder.now().Sub(m.started)
	fields := []zap.Field{
		zap.Int64("processing_ms", elapsed.Milliseconds()),
		zap.Uint64("audio_ms", m.audioMillis),
		zap.Int("segments", m.segments),
		zap.Int("chars", m.chars),
		zap.Int("runes", m.runes),
	}

	if err != nil {
		m.recorder.failedTranscriptions.Add(1)
		m.log.Error("transcription failed", append(fields, zap.Error(err))...)
		return
	}

	m.recorder.totalAudioMillis.Add(m.audioMillis)
	m.recorder.totalProcessingMillis.Add(uint64(max(elapsed.Milliseconds(), 0)))
	m.log.Info("transcription completed", append(fields, zap.String("language", language))...)
}

func cloneMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
