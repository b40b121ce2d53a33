package audio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
)

func TestNewBufferDefaults(t *testing.T) {
	buf := NewBuffer()
	assert.True(t, buf.IsEmpty())
	assert.Equal(t, uint32(WhisperSampleRate), buf.SampleRate())
	assert.Equal(t, time.Duration(0), buf.Duration())
	assert.Equal(t, uint64(0), buf.DurationMillis())
}

func TestBufferDuration(t *testing.T) {
	buf := FromSamples(make([]float32, 24000), 16000)
	assert.Equal(t, 1500*time.Millisecond, buf.Duration())
	assert.Equal(t, uint64(1500), buf.DurationMillis())

	buf = FromSamples(make([]float32, 441), 44100)
	assert.Equal(t, uint64(10), buf.DurationMillis())
}

func TestAppendAndClear(t *testing.T) {
	buf := NewBuffer()
	buf.Append(0.1, 0.2)
	buf.Append(3.5)
	assert.Equal(t, []float32{0.1, 0.2, 3.5}, buf.Samples())

	buf.Clear()
	assert.True(t, buf.IsEmpty())
	assert.Equal(t, uint32(WhisperSampleRate), buf.SampleRate())
}

func TestCloneIsIndependent(t *testing.T) {
	src := FromSamples([]float32{1, 2, 3}, 8000)
	clone := src.Clone()
	clone.Samples()[0] = 42
	assert.Equal(t, float32(1), src.Samples()[0])
	assert.Equal(t, uint32(8000), clone.SampleRate())
}

func TestNormalize(t *testing.T) {
	buf := FromSamples([]float32{0.25, -0.5, 0.1}, 16000)
	buf.Normalize()
	assert.InDeltaSlice(t, []float32{0.5, -1, 0.2}, buf.Samples(), 1e-6)

	silent := FromSamples([]float32{0, 0}, 16000)
	silent.Normalize()
	assert.Equal(t, []float32{0, 0}, silent.Samples())

	unit := FromSamples([]float32{1, -0.3}, 16000)
	unit.Normalize()
	assert.Equal(t, []float32{1, -0.3}, unit.Samples())

	empty := NewBuffer()
	empty.Normalize()
	assert.True(t, empty.IsEmpty())
}

func TestApplyNoiseGate(t *testing.T) {
	buf := FromSamples([]float32{0.01, -0.02, 0.5, -0.6, 0.05}, 16000)
	buf.ApplyNoiseGate(0.05)
	assert.Equal(t, []float32{0, 0, 0.5, -0.6, 0.05}, buf.Samples())
}

func TestApplyNoiseGateZeroesNaN(t *testing.T) {
	nan := float32(math.NaN())
	buf := FromSamples([]float32{nan, 0.7, -nan, 0.01}, 16000)
	buf.ApplyNoiseGate(0.05)
	for i, s := range buf.Samples() {
		if math.IsNaN(float64(s)) || (s != 0 && math.Abs(float64(s)) < 0.05) {
			t.Fatalf("sample %d = %v passed the gate", i, s)
		}
	}
	assert.Equal(t, []float32{0, 0.7, 0, 0}, buf.Samples())
}

func TestResampleIdentity(t *testing.T) {
	buf := FromSamples([]float32{0.1, 0.2, 0.3}, 16000)
	out, err := buf.Resample(16000)
	require.NoError(t, err)
	assert.Equal(t, buf.Samples(), out.Samples())

	out.Samples()[0] = 9
	assert.Equal(t, float32(0.1), buf.Samples()[0], "identity resample must copy")
}

func TestResampleLength(t *testing.T) {
	cases := []struct {
		name     string
		n        int
		from, to uint32
	}{
		{"48k to 16k", 48000, 48000, 16000},
		{"44.1k to 16k", 44100, 44100, 16000},
		{"8k to 16k", 8000, 8000, 16000},
		{"odd length", 1001, 22050, 16000},
		{"single sample", 1, 8000, 16000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := FromSamples(make([]float32, tc.n), tc.from)
			out, err := buf.Resample(tc.to)
			require.NoError(t, err)
			want := int(math.Round(float64(tc.n) * float64(tc.to) / float64(tc.from)))
			assert.InDelta(t, want, out.Len(), 1)
			assert.Equal(t, tc.to, out.SampleRate())
		})
	}

	out, err := FromSamples(make([]float32, 48000), 48000).Resample(16000)
	require.NoError(t, err)
	assert.Equal(t, 16000, out.Len())
}

func TestResampleInterpolates(t *testing.T) {
	// upsampling a ramp by 2x inserts midpoints
	out, err := Resample([]float32{0, 1, 2, 3}, 8000, 16000)
	require.NoError(t, err)
	require.Len(t, out, 8)
	assert.InDeltaSlice(t, []float32{0, 0.5, 1, 1.5, 2, 2.5, 3, 3}, out, 1e-6)

	down, err := Resample([]float32{0, 1, 2, 3, 4, 5}, 48000, 16000)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 3}, down, 1e-6)
}

func TestResampleEdgeCases(t *testing.T) {
	out, err := NewBuffer().Resample(48000)
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
	assert.Equal(t, uint32(48000), out.SampleRate())

	_, err = FromSamples([]float32{1}, 16000).Resample(0)
	require.Error(t, err)
	kind, ok := coreerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coreerr.Audio, kind)
}

func TestStereoToMono(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, StereoToMono([]float32{1, 0.5}, []float32{0, -0.5}))
	assert.Len(t, StereoToMono([]float32{1, 1, 1}, []float32{1}), 1)
	assert.Empty(t, StereoToMono(nil, nil))
}
