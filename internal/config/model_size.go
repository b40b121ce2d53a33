package config

import (
	"fmt"
	"strings"
)

// ModelSize selects one of the published ggml whisper models. The numeric
// values double as the foreign enum codes.
type ModelSize int32

const (
	ModelTiny ModelSize = iota
	ModelBase
	ModelSmall
	ModelMedium
	ModelLarge
	ModelLargeV2
	ModelLargeV3
	ModelLargeV3Turbo
)

type modelSpec struct {
	name     string
	filename string
	bytes    uint64
}

var modelSpecs = [...]modelSpec{
	ModelTiny:         {"tiny", "ggml-tiny.bin", 75_000_000},
	ModelBase:         {"base", "ggml-base.bin", 142_000_000},
	ModelSmall:        {"small", "ggml-small.bin", 466_000_000},
	ModelMedium:       {"medium", "ggml-medium.bin", 1_500_000_000},
	ModelLarge:        {"large", "ggml-large.bin", 2_900_000_000},
	ModelLargeV2:      {"large-v2", "ggml-large-v2.bin", 2_900_000_000},
	ModelLargeV3:      {"large-v3", "ggml-large-v3.bin", 2_900_000_000},
	ModelLargeV3Turbo: {"large-v3-turbo", "ggml-large-v3-turbo.bin", 1_600_000_000},
}

// ModelSizes lists every size in ascending order.
func ModelSizes() []ModelSize {
	out := make([]ModelSize, len(modelSpecs))
	for i := range modelSpecs {
		out[i] = ModelSize(i)
	}
	return out
}

// Valid reports whether m is a known size.
func (m ModelSize) Valid() bool { return m >= 0 && int(m) < len(modelSpecs) }

func (m ModelSize) String() string {
	if !m.Valid() {
		return fmt.Sprintf("ModelSize(%d)", int32(m))
	}
	return modelSpecs[m].name
}

// Filename returns the ggml file name of the model.
func (m ModelSize) Filename() string {
	if !m.Valid() {
		return modelSpecs[ModelBase].filename
	}
	return modelSpecs[m].filename
}

// SizeBytes returns the approximate model size on disk.
func (m ModelSize) SizeBytes() uint64 {
	if !m.Valid() {
		return 0
	}
	return modelSpecs[m].bytes
}

// ModelSizeFromCode maps a foreign enum code; unknown codes select base.
func ModelSizeFromCode(code int32) ModelSize {
	m := ModelSize(code)
	if !m.Valid() {
		return ModelBase
	}
	return m
}

// ParseModelSize accepts names like "large-v3", "large_v3" or "LargeV3".
func ParseModelSize(value string) (ModelSize, error) {
	norm := strings.ToLower(strings.TrimSpace(value))
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)
	for i, spec := range modelSpecs {
		if strings.ReplaceAll(spec.name, "-", "") == norm {
			return ModelSize(i), nil
		}
	}
	return ModelBase, fmt.Errorf("config: unknown model size %q", value)
}
