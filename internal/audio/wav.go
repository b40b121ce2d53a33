package audio

import (
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
)

// WAVE format tags accepted by DecodeWAV.
const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

// LoadWAV reads a WAV file and returns it as mono audio at WhisperSampleRate.
func LoadWAV(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, coreerr.Wrap(coreerr.IO, err, "open "+path)
	}
	defer f.Close()

	return DecodeWAV(f)
}

// DecodeWAV decodes integer PCM or 32-bit IEEE float WAV data. Stereo input
// is averaged to mono and the result is resampled to WhisperSampleRate.
func DecodeWAV(r io.ReadSeeker) (Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return Buffer{}, coreerr.Wrap(coreerr.Audio, err, "invalid wav container")
		}
		return Buffer{}, coreerr.New(coreerr.Audio, "invalid wav container")
	}
	if dec.SampleRate == 0 {
		return Buffer{}, coreerr.New(coreerr.Audio, "wav header declares a zero sample rate")
	}

	channels := int(dec.NumChans)
	if channels != 1 && channels != 2 {
		return Buffer{}, coreerr.New(coreerr.UnsupportedFormat, "%d channels", channels)
	}

	convert, err := sampleConverter(dec.WavAudioFormat, dec.BitDepth)
	if err != nil {
		return Buffer{}, err
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, coreerr.Wrap(coreerr.Audio, err, "read pcm data")
	}

	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = convert(v)
	}
	if channels == 2 {
		samples = downmixInterleaved(samples)
	}

	buf := FromSamples(samples, dec.SampleRate)
	if buf.SampleRate() == WhisperSampleRate {
		return buf, nil
	}
	return buf.Resample(WhisperSampleRate)
}

func sampleConverter(format, bitDepth uint16) (func(int) float32, error) {
	switch format {
	case formatIEEEFloat:
		if bitDepth != 32 {
			return nil, coreerr.New(coreerr.UnsupportedFormat, "%d-bit float samples", bitDepth)
		}
		// the decoder hands back the raw little-endian bits as a signed int32
		return func(v int) float32 {
			return math.Float32frombits(uint32(int32(v)))
		}, nil
	case formatPCM, formatExtensible:
		switch bitDepth {
		case 8:
			return func(v int) float32 { return float32(v-128) / 128 }, nil
		case 16, 24, 32:
			scale := float32(int64(1) << (bitDepth - 1))
			return func(v int) float32 { return float32(v) / scale }, nil
		default:
			return nil, coreerr.New(coreerr.UnsupportedFormat, "%d-bit integer samples", bitDepth)
		}
	default:
		return nil, coreerr.New(coreerr.UnsupportedFormat, "wave format tag %#x", format)
	}
}

// downmixInterleaved averages L/R pairs. A trailing unpaired sample is
// averaged with silence.
func downmixInterleaved(samples []float32) []float32 {
	out := make([]float32, (len(samples)+1)/2)
	for i := range out {
		l := samples[2*i]
		var r float32
		if 2*i+1 < len(samples) {
			r = samples[2*i+1]
		}
		out[i] = (l + r) / 2
	}
	return out
}
