package engine

// Segment is a timed piece of transcript.
type Segment struct {
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
	// SpeakerID is reserved for diarization and currently never set.
	SpeakerID *uint32 `json:"speaker_id,omitempty"`
}

// NewSegment builds a segment, clamping end to start and confidence to [0,1].
func NewSegment(startMs, endMs int64, text string, confidence float32) Segment {
	if endMs < startMs {
		endMs = startMs
	}
	switch {
	case confidence < 0:
		confidence = 0
	case confidence > 1:
		confidence = 1
	}
	return Segment{StartMs: startMs, EndMs: endMs, Text: text, Confidence: confidence}
}

// Duration returns the segment length in milliseconds.
func (s Segment) Duration() int64 { return s.EndMs - s.StartMs }

// Result is the outcome of one transcription.
type Result struct {
	Text             string    `json:"text"`
	Segments         []Segment `json:"segments"`
	Language         string    `json:"language"`
	ProcessingTimeMs uint64    `json:"processing_time_ms"`
	AudioDurationMs  uint64    `json:"audio_duration_ms"`
}

// RealTimeFactor is processing time over audio duration, or 0 for empty audio.
func (r Result) RealTimeFactor() float64 {
	if r.AudioDurationMs == 0 {
		return 0
	}
	return float64(r.ProcessingTimeMs) / float64(r.AudioDurationMs)
}
