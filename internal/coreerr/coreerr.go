// Package coreerr defines the error taxonomy shared by the audio pipeline, the
// transcription engine and the C boundary.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Each kind maps to a distinct negative code
// handed to foreign callers.
type Kind int32

const (
	ModelLoad         Kind = -1
	ContextInit       Kind = -2
	Audio             Kind = -3
	Transcription     Kind = -4
	Config            Kind = -5
	IO                Kind = -6
	ModelNotFound     Kind = -7
	UnsupportedFormat Kind = -8
	Device            Kind = -9
	FFI               Kind = -10
)

// GenericCode is reported for errors that carry no Kind. It lies outside the
// range of kind codes.
const GenericCode int32 = -99

var kindText = map[Kind]string{
	ModelLoad:         "failed to load model",
	ContextInit:       "failed to initialize context",
	Audio:             "audio processing error",
	Transcription:     "transcription failed",
	Config:            "invalid configuration",
	IO:                "file I/O error",
	ModelNotFound:     "model not found",
	UnsupportedFormat: "unsupported audio format",
	Device:            "recording device error",
	FFI:               "FFI error",
}

// String returns a human readable description of the kind.
func (k Kind) String() string {
	if s, ok := kindText[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown error kind %d", int32(k))
}

// Code returns the foreign error code for the kind.
func (k Kind) Code() int32 { return int32(k) }

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind without a message,
// which lets callers match on bare kinds: errors.Is(err, coreerr.Of(coreerr.IO)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Of returns a bare error of the given kind, suitable as an errors.Is target.
func Of(kind Kind) error { return &Error{Kind: kind} }

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of the outermost classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

// Code maps err to its foreign code; unclassified errors collapse to GenericCode
// and nil maps to 0.
func Code(err error) int32 {
	if err == nil {
		return 0
	}
	if kind, ok := KindOf(err); ok {
		return kind.Code()
	}
	return GenericCode
}
