package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/audio"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
)

func BenchmarkStubEngineTranscribe(b *testing.B) {
	path := filepath.Join(b.TempDir(), "ggml-base.bin")
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		b.Fatalf("WriteFile: %v", err)
	}
	eng := New(config.WithModelPath(path), NewStubBackend(nil))
	if err := eng.Initialize(); err != nil {
		b.Fatalf("Initialize: %v", err)
	}
	defer eng.Shutdown()

	buf := audio.FromSamples(make([]float32, 48000*2), 48000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Transcribe(buf); err != nil {
			b.Fatalf("Transcribe failed: %v", err)
		}
	}
}
