package engine

// Backend loads whisper models. The native whisper.cpp backend and the stub
// backend both implement it; tests substitute fakes.
type Backend interface {
	LoadModel(path string, opts ModelOptions) (Model, error)
}

// Model is a loaded set of weights. Close must be called exactly once.
type Model interface {
	NewState() (State, error)
	Close() error
}

// State is a per-inference decoding state created from a Model.
type State interface {
	Run(params InferenceParams, samples []float32) error
	NumSegments() int
	Segment(i int) (RawSegment, error)
	// DetectLanguage returns the language code chosen during Run.
	DetectLanguage() (string, error)
	Close() error
}

// ModelOptions are applied when a model is loaded.
type ModelOptions struct {
	UseGPU         bool
	FlashAttention bool
}

// InferenceParams configure a single Run.
type InferenceParams struct {
	// Language is an ISO code, or "auto" for detection.
	Language          string
	Translate         bool
	Threads           uint32
	Temperature       float32
	TokenTimestamps   bool
	MaxSegmentLength  uint32
	// Drop blank and non-speech marker segments after decoding. The
	// whisper.cpp bindings expose no setters for the native equivalents.
	SuppressBlank     bool
	SuppressNonSpeech bool
}

// RawSegment is a segment as emitted by the backend. T0 and T1 are in
// centiseconds.
type RawSegment struct {
	T0, T1     int64
	Text       string
	Confidence float32
}
