//go:build whispercpp

package engine

import "testing"

func BenchmarkNativeEngineTranscribe(b *testing.B) {
	eng := openTestNativeEngine(b, "en")
	buf := loadTestAudio(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Transcribe(buf); err != nil {
			b.Fatalf("Transcribe failed: %v", err)
		}
	}
}
