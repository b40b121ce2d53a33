//go:build portaudio

package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
)

// RecorderAvailable reports whether microphone capture was compiled in.
func RecorderAvailable() bool { return true }

// Recorder captures mono 16 kHz audio from the default input device.
type Recorder struct {
	logger *zap.Logger

	// serialises Start and Stop so a new stream never opens over a live loop
	mu      sync.Mutex
	capture *capture
}

// NewRecorder initialises portaudio. Call Close to release it.
func NewRecorder(logger *zap.Logger) (*Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, coreerr.Wrap(coreerr.Device, err, "initialise portaudio")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "recorder"))
	return &Recorder{logger: logger, capture: newCapture(logger)}, nil
}

// Start opens the default input stream. Starting twice is a no-op.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capture.isRecording() {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, WhisperSampleRate, framesPerBuffer, r.capture.frame)
	if err != nil {
		return coreerr.Wrap(coreerr.Device, err, "open input stream")
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return coreerr.Wrap(coreerr.Device, err, "start input stream")
	}

	r.capture.begin(stream)
	r.logger.Debug("recording started")
	return nil
}

// Stop ends the capture and returns everything recorded since Start.
// Recordings shorter than 200ms are padded with silence.
func (r *Recorder) Stop() Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capture.end()
}

func (r *Recorder) IsRecording() bool { return r.capture.isRecording() }

// Close stops any capture in progress and terminates portaudio.
func (r *Recorder) Close() error {
	r.Stop()
	if err := portaudio.Terminate(); err != nil {
		return coreerr.Wrap(coreerr.Device, err, "terminate portaudio")
	}
	return nil
}
