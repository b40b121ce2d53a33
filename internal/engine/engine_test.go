package engine

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/audio"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/telemetry"
)

type fakeBackend struct {
	mu       sync.Mutex
	loadErr  error
	runErr   error
	segments []RawSegment
	detected string
	detErr   error

	loads      int
	closes     int
	runs       int
	lastParams InferenceParams
	lastLen    int
}

func (b *fakeBackend) LoadModel(path string, opts ModelOptions) (Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	b.loads++
	return &fakeModel{backend: b}, nil
}

func (b *fakeBackend) counts() (loads, closes, runs int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads, b.closes, b.runs
}

type fakeModel struct{ backend *fakeBackend }

func (m *fakeModel) NewState() (State, error) { return &fakeState{backend: m.backend}, nil }

func (m *fakeModel) Close() error {
	m.backend.mu.Lock()
	m.backend.closes++
	m.backend.mu.Unlock()
	return nil
}

type fakeState struct{ backend *fakeBackend }

func (s *fakeState) Run(params InferenceParams, samples []float32) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs++
	b.lastParams = params
	b.lastLen = len(samples)
	return b.runErr
}

func (s *fakeState) NumSegments() int { return len(s.backend.segments) }

func (s *fakeState) Segment(i int) (RawSegment, error) { return s.backend.segments[i], nil }

func (s *fakeState) DetectLanguage() (string, error) { return s.backend.detected, s.backend.detErr }

func (s *fakeState) Close() error { return nil }

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ggml-base.bin")
	require.NoError(t, os.WriteFile(path, []byte("ggml"), 0o644))
	return path
}

func newTestEngine(t *testing.T, backend Backend, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.WithModelPath(writeModel(t))
	if mutate != nil {
		mutate(&cfg)
	}
	eng := New(cfg, backend)
	t.Cleanup(eng.Shutdown)
	return eng
}

func TestTranscribeBeforeInitialize(t *testing.T) {
	eng := New(config.Default(), &fakeBackend{})
	_, err := eng.Transcribe(audio.FromSamples([]float32{0.1}, 16000))
	require.ErrorIs(t, err, ErrNotInitialized)
	kind, _ := coreerr.KindOf(err)
	assert.Equal(t, coreerr.ContextInit, kind)
	assert.False(t, eng.IsInitialized())
}

func TestInitializeModelNotFound(t *testing.T) {
	backend := &fakeBackend{}
	eng := New(config.WithModelPath(filepath.Join(t.TempDir(), "missing.bin")), backend)
	err := eng.Initialize()
	require.Error(t, err)
	kind, _ := coreerr.KindOf(err)
	assert.Equal(t, coreerr.ModelNotFound, kind)
	loads, _, _ := backend.counts()
	assert.Zero(t, loads, "backend must not be asked to load a missing model")
	assert.False(t, eng.IsInitialized())
}

func TestInitializeDerivesPathFromModelsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ggml-tiny.bin"), []byte("x"), 0o644))

	cfg := config.WithModelSize(config.ModelTiny)
	cfg.ModelsDir = dir
	eng := New(cfg, &fakeBackend{})
	defer eng.Shutdown()

	require.NoError(t, eng.Initialize())
	assert.Equal(t, filepath.Join(dir, "ggml-tiny.bin"), eng.ModelPath())
}

func TestInitializeBackendFailure(t *testing.T) {
	eng := newTestEngine(t, &fakeBackend{loadErr: errors.New("bad magic")}, nil)
	err := eng.Initialize()
	require.Error(t, err)
	kind, _ := coreerr.KindOf(err)
	assert.Equal(t, coreerr.ContextInit, kind)
	assert.Contains(t, err.Error(), "bad magic")
	assert.False(t, eng.IsInitialized())
}

func TestTranscribeEmptyAudioSkipsBackend(t *testing.T) {
	backend := &fakeBackend{}
	eng := newTestEngine(t, backend, nil)
	require.NoError(t, eng.Initialize())

	res, err := eng.Transcribe(audio.NewBuffer())
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Empty(t, res.Segments)
	_, _, runs := backend.counts()
	assert.Zero(t, runs)
}

func TestTranscribeTooShortAfterResampleSkipsBackend(t *testing.T) {
	backend := &fakeBackend{}
	eng := newTestEngine(t, backend, nil)
	require.NoError(t, eng.Initialize())

	res, err := eng.Transcribe(audio.FromSamples([]float32{0.5}, 48000))
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Empty(t, res.Segments)
	assert.Zero(t, res.AudioDurationMs)
	_, _, runs := backend.counts()
	assert.Zero(t, runs)
}

func TestTranscribeConvertsSegments(t *testing.T) {
	backend := &fakeBackend{
		segments: []RawSegment{
			{T0: 0, T1: 100, Text: " Hello", Confidence: 0.9},
			{T0: 100, T1: 150, Text: " [BLANK_AUDIO]"},
			{T0: 100, T1: 250, Text: " world.", Confidence: 1.4},
			{T0: 250, T1: 260, Text: "   "},
		},
	}
	eng := newTestEngine(t, backend, func(c *config.Config) { c.Language.Source = "fr" })
	require.NoError(t, eng.Initialize())

	res, err := eng.Transcribe(audio.FromSamples(make([]float32, 40000), 16000))
	require.NoError(t, err)

	assert.Equal(t, "Hello world.", res.Text)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, int64(0), res.Segments[0].StartMs)
	assert.Equal(t, int64(1000), res.Segments[0].EndMs)
	assert.Equal(t, "Hello", res.Segments[0].Text)
	assert.Equal(t, int64(1000), res.Segments[1].StartMs)
	assert.Equal(t, int64(2500), res.Segments[1].EndMs)
	assert.Equal(t, float32(1), res.Segments[1].Confidence)
	assert.Equal(t, "fr", res.Language)
	assert.Equal(t, uint64(2500), res.AudioDurationMs)

	params := backend.lastParams
	assert.Equal(t, "fr", params.Language)
	assert.True(t, params.SuppressBlank)
	assert.True(t, params.SuppressNonSpeech)
}

func TestTranscribeAutoLanguage(t *testing.T) {
	backend := &fakeBackend{segments: []RawSegment{{T0: 0, T1: 10, Text: "hola"}}, detected: "es"}
	eng := newTestEngine(t, backend, nil)
	require.NoError(t, eng.Initialize())

	res, err := eng.Transcribe(audio.FromSamples(make([]float32, 1600), 16000))
	require.NoError(t, err)
	assert.Equal(t, "es", res.Language)
	assert.Equal(t, "auto", backend.lastParams.Language)

	backend.detErr = errors.New("no language")
	res, err = eng.Transcribe(audio.FromSamples(make([]float32, 1600), 16000))
	require.NoError(t, err)
	assert.Equal(t, "en", res.Language)
}

func TestTranscribeResamplesAndKeepsOriginalDuration(t *testing.T) {
	backend := &fakeBackend{}
	eng := newTestEngine(t, backend, nil)
	require.NoError(t, eng.Initialize())

	res, err := eng.Transcribe(audio.FromSamples(make([]float32, 48000), 48000))
	require.NoError(t, err)
	assert.Equal(t, 16000, backend.lastLen)
	assert.Equal(t, uint64(1000), res.AudioDurationMs)
}

func TestTranscribeTruncatesToMaxDuration(t *testing.T) {
	backend := &fakeBackend{}
	eng := newTestEngine(t, backend, func(c *config.Config) { c.MaxDurationSeconds = 1 })
	require.NoError(t, eng.Initialize())

	res, err := eng.Transcribe(audio.FromSamples(make([]float32, 48000), 16000))
	require.NoError(t, err)
	assert.Equal(t, 16000, backend.lastLen)
	assert.Equal(t, uint64(3000), res.AudioDurationMs)
}

func TestTranscribeBackendFailure(t *testing.T) {
	recorder := telemetry.NewRecorder(nil)
	backend := &fakeBackend{runErr: errors.New("encoder exploded")}
	cfg := config.WithModelPath(writeModel(t))
	eng := New(cfg, backend, WithRecorder(recorder))
	defer eng.Shutdown()
	require.NoError(t, eng.Initialize())

	_, err := eng.Transcribe(audio.FromSamples([]float32{0.1, 0.2}, 16000))
	require.Error(t, err)
	kind, _ := coreerr.KindOf(err)
	assert.Equal(t, coreerr.Transcription, kind)
	assert.Contains(t, err.Error(), "encoder exploded")

	snapshot := recorder.Snapshot()
	assert.Equal(t, uint64(1), snapshot.FailedTranscriptions)
	assert.Equal(t, uint64(1), snapshot.TotalInitializations)
}

func TestProcessingTimeUsesClock(t *testing.T) {
	var (
		mu    sync.Mutex
		clock = time.Unix(100, 0)
	)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}
	eng := New(config.WithModelPath(writeModel(t)), &fakeBackend{}, WithClock(now))
	defer eng.Shutdown()
	require.NoError(t, eng.Initialize())

	res, err := eng.Transcribe(audio.FromSamples(make([]float32, 16000), 16000))
	require.NoError(t, err)
	assert.Equal(t, uint64(250), res.ProcessingTimeMs)
	assert.InDelta(t, 0.25, res.RealTimeFactor(), 1e-9)
}

func TestShutdownIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	eng := newTestEngine(t, backend, nil)
	require.NoError(t, eng.Initialize())
	require.True(t, eng.IsInitialized())

	eng.Shutdown()
	eng.Shutdown()
	require.NoError(t, eng.Close())

	loads, closes, _ := backend.counts()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, closes)
	assert.False(t, eng.IsInitialized())
	assert.Empty(t, eng.ModelPath())

	_, err := eng.Transcribe(audio.FromSamples([]float32{1}, 16000))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestReinitializeReleasesPreviousModel(t *testing.T) {
	backend := &fakeBackend{}
	eng := newTestEngine(t, backend, nil)
	require.NoError(t, eng.Initialize())
	require.NoError(t, eng.Initialize())

	loads, closes, _ := backend.counts()
	assert.Equal(t, 2, loads)
	assert.Equal(t, 1, closes)
}

func TestSetConfigResetsEngine(t *testing.T) {
	backend := &fakeBackend{}
	eng := newTestEngine(t, backend, nil)
	require.NoError(t, eng.Initialize())

	cfg := eng.Config()
	cfg.Language.Source = "de"
	eng.SetConfig(cfg)

	assert.False(t, eng.IsInitialized())
	assert.Equal(t, "de", eng.Config().Language.Source)
	_, closes, _ := backend.counts()
	assert.Equal(t, 1, closes)
}

func TestTranscribeFile(t *testing.T) {
	eng := newTestEngine(t, NewStubBackend(nil), nil)
	require.NoError(t, eng.Initialize())

	_, err := eng.TranscribeFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	kind, _ := coreerr.KindOf(err)
	assert.Equal(t, coreerr.IO, kind)
}

func TestStubBackendTranscript(t *testing.T) {
	backend := NewStubBackend(nil)
	eng := newTestEngine(t, backend, nil)
	require.NoError(t, eng.Initialize())
	assert.Equal(t, int64(1), backend.LoadedModels())

	res, err := eng.Transcribe(audio.FromSamples(make([]float32, 16000*7), 16000))
	require.NoError(t, err)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, int64(0), res.Segments[0].StartMs)
	assert.Equal(t, int64(5000), res.Segments[0].EndMs)
	assert.Equal(t, int64(7000), res.Segments[1].EndMs)
	assert.Equal(t, "en", res.Language)
	assert.Contains(t, res.Text, "[stub] segment 1")

	eng.Shutdown()
	assert.Equal(t, int64(0), backend.LoadedModels())
}

func TestSegmentInvariants(t *testing.T) {
	seg := NewSegment(500, 100, "x", -0.5)
	assert.Equal(t, int64(500), seg.EndMs)
	assert.Equal(t, int64(0), seg.Duration())
	assert.Equal(t, float32(0), seg.Confidence)
	assert.Nil(t, seg.SpeakerID)

	assert.Zero(t, Result{ProcessingTimeMs: 10}.RealTimeFactor())
}

func TestConcurrentTranscribe(t *testing.T) {
	eng := newTestEngine(t, NewStubBackend(nil), nil)
	require.NoError(t, eng.Initialize())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Transcribe(audio.FromSamples(make([]float32, 1600), 16000))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
