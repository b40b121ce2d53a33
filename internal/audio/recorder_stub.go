//go:build !portaudio

package audio

import (
	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
)

// RecorderAvailable reports whether microphone capture was compiled in.
func RecorderAvailable() bool { return false }

// Recorder is unavailable without the portaudio build tag.
type Recorder struct{}

// NewRecorder always fails in builds without portaudio.
func NewRecorder(*zap.Logger) (*Recorder, error) {
	return nil, coreerr.New(coreerr.Device, "microphone capture requires the portaudio build tag")
}

func (*Recorder) Start() error {
	return coreerr.New(coreerr.Device, "microphone capture requires the portaudio build tag")
}

func (*Recorder) Stop() Buffer { return NewBuffer() }
func (*Recorder) IsRecording() bool { return false }
func (*Recorder) Close() error { return nil }
