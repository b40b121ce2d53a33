//go:build !whispercpp

package engine

import "go.uber.org/zap"

// NativeAvailable reports whether the native whisper backend is compiled in.
func NativeAvailable() bool { return false }

// NativeBackend stands in for the whisper.cpp backend when it is not built.
type NativeBackend struct{}

// NewNativeBackend returns an error when the native backend is not built.
func NewNativeBackend(*zap.Logger) (*NativeBackend, error) {
	return nil, ErrNativeEngineUnavailable
}

func (*NativeBackend) LoadModel(string, ModelOptions) (Model, error) {
	return nil, ErrNativeEngineUnavailable
}
