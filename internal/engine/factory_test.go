package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
)

func TestNewBackendUsesStubWhenForced(t *testing.T) {
	cfg := config.Default()
	cfg.UseStubEngine = true
	backend, err := NewBackend(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &StubBackend{}, backend)
}

func TestNewBackendNative(t *testing.T) {
	backend, err := NewBackend(config.Default(), nil)
	if NativeAvailable() {
		require.NoError(t, err)
		assert.IsType(t, &NativeBackend{}, backend)
		return
	}
	assert.ErrorIs(t, err, ErrNativeEngineUnavailable)
	assert.Nil(t, backend)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.UseStubEngine = true
	eng, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.False(t, eng.IsInitialized(), "engine must start uninitialised")
	assert.IsType(t, &StubBackend{}, eng.backend)
}

func TestLanguageHelpers(t *testing.T) {
	cases := []struct {
		candidate, fallback, want string
	}{
		{"", "", "auto"},
		{" EN ", "", "en"},
		{"", "de", "de"},
		{"pl", "de", "pl"},
	}
	for _, tc := range cases {
		if got := normaliseLanguage(tc.candidate, tc.fallback); got != tc.want {
			t.Fatalf("normaliseLanguage(%q, %q) = %q, want %q", tc.candidate, tc.fallback, got, tc.want)
		}
	}
}

func TestSuppressedSegments(t *testing.T) {
	both := InferenceParams{SuppressBlank: true, SuppressNonSpeech: true}
	cases := []struct {
		text   string
		params InferenceParams
		want   bool
	}{
		{"", InferenceParams{}, true},
		{"  ", InferenceParams{}, true},
		{"[BLANK_AUDIO]", both, true},
		{" [blank_audio] ", both, true},
		{"[SILENCE]", both, true},
		{"(silence)", both, true},
		{"hello", both, false},
		{"[BLANK_AUDIO]", InferenceParams{SuppressNonSpeech: true}, false},
		{"[SILENCE]", InferenceParams{SuppressBlank: true}, false},
	}
	for _, tc := range cases {
		if got := suppressed(tc.text, tc.params); got != tc.want {
			t.Fatalf("suppressed(%q, %+v) = %v, want %v", tc.text, tc.params, got, tc.want)
		}
	}
}
