// Package audio normalises captured or file-loaded audio into the mono
// float32 16 kHz format the recognition backend expects.
package audio

import (
	"math"
	"time"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
)

// WhisperSampleRate is the sample rate required by whisper models.
const WhisperSampleRate = 16000

// Buffer holds mono float32 samples at a fixed sample rate.
type Buffer struct {
	samples    []float32
	sampleRate uint32
}

// NewBuffer returns an empty buffer at WhisperSampleRate.
func NewBuffer() Buffer {
	return Buffer{sampleRate: WhisperSampleRate}
}

// FromSamples adopts samples without copying. A zero rate is replaced by
// WhisperSampleRate.
func FromSamples(samples []float32, sampleRate uint32) Buffer {
	if sampleRate == 0 {
		sampleRate = WhisperSampleRate
	}
	return Buffer{samples: samples, sampleRate: sampleRate}
}

func (b Buffer) Samples() []float32 { return b.samples }

func (b Buffer) SampleRate() uint32 {
	if b.sampleRate == 0 {
		return WhisperSampleRate
	}
	return b.sampleRate
}

func (b Buffer) Len() int { return len(b.samples) }

func (b Buffer) IsEmpty() bool { return len(b.samples) == 0 }

// Duration is len/sampleRate.
func (b Buffer) Duration() time.Duration {
	return time.Duration(len(b.samples)) * time.Second / time.Duration(b.SampleRate())
}

// DurationMillis is the integer duration in milliseconds, rounded down.
func (b Buffer) DurationMillis() uint64 {
	return uint64(len(b.samples)) * 1000 / uint64(b.SampleRate())
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	out := Buffer{sampleRate: b.SampleRate()}
	if b.samples != nil {
		out.samples = append(make([]float32, 0, len(b.samples)), b.samples...)
	}
	return out
}

// Append concatenates samples without range checks.
func (b *Buffer) Append(samples ...float32) {
	b.samples = append(b.samples, samples...)
}

// Clear drops all samples and keeps the sample rate.
func (b *Buffer) Clear() {
	b.samples = b.samples[:0]
}

// Normalize scales the buffer so that its peak magnitude is 1.
func (b *Buffer) Normalize() {
	var peak float32
	for _, s := range b.samples {
		if a := abs32(s); a > peak {
			peak = a
		}
	}
	if peak == 0 || peak == 1 {
		return
	}
	scale := 1 / peak
	for i := range b.samples {
		b.samples[i] *= scale
	}
}

// ApplyNoiseGate zeroes every sample quieter than threshold. NaN samples are
// zeroed too.
func (b *Buffer) ApplyNoiseGate(threshold float32) {
	for i, s := range b.samples {
		if !(abs32(s) >= threshold) {
			b.samples[i] = 0
		}
	}
}

// Resample converts the buffer to targetRate. The receiver is left untouched.
func (b Buffer) Resample(targetRate uint32) (Buffer, error) {
	if targetRate == 0 {
		return Buffer{}, coreerr.New(coreerr.Audio, "resample: target sample rate must be positive")
	}
	if b.SampleRate() == targetRate {
		return b.Clone(), nil
	}
	out, err := Resample(b.samples, b.SampleRate(), targetRate)
	if err != nil {
		return Buffer{}, err
	}
	return Buffer{samples: out, sampleRate: targetRate}, nil
}

// Resample converts samples from one rate to another using linear
// interpolation between the two nearest source samples. The output holds
// round(len*to/from) samples. It is not band-limited, so downsampling aliases.
func Resample(samples []float32, from, to uint32) ([]float32, error) {
	if from == 0 || to == 0 {
		return nil, coreerr.New(coreerr.Audio, "resample: invalid rates %d -> %d", from, to)
	}
	if from == to {
		return append([]float32(nil), samples...), nil
	}
	if len(samples) == 0 {
		return []float32{}, nil
	}

	ratio := float64(to) / float64(from)
	n := int(math.Round(float64(len(samples)) * ratio))
	out := make([]float32, n)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) / ratio
		lo := int(pos)
		if lo > last {
			lo = last
		}
		hi := lo + 1
		if hi > last {
			hi = last
		}
		frac := pos - float64(lo)
		out[i] = float32(float64(samples[lo])*(1-frac) + float64(samples[hi])*frac)
	}
	return out, nil
}

// StereoToMono averages two channels over the shorter length.
func StereoToMono(left, right []float32) []float32 {
	n := min(len(left), len(right))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = (left[i] + right[i]) / 2
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
