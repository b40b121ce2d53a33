package cabi

/*
#cgo CFLAGS: -I${SRCDIR}/../../include
#define WHISPER_CORE_NO_PROTOTYPES
#include <stdlib.h>
#include "whisper_core.h"
*/
import "C"

import (
	"unsafe"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/bridge"
)

// Allocation helpers for Go code that plays the foreign side, such as the
// package tests, which cannot use cgo themselves.

// NewRecord allocates a zeroed whisper_core_result in C memory.
func NewRecord() unsafe.Pointer {
	return C.calloc(1, C.sizeof_whisper_core_result)
}

// NewConfig allocates a whisper_core_config in C memory holding fc. Release
// it with FreeConfig.
func NewConfig(fc bridge.ForeignConfig) unsafe.Pointer {
	c := (*C.whisper_core_config)(C.calloc(1, C.sizeof_whisper_core_config))
	if fc.ModelPath.Valid {
		c.model_path = C.CString(fc.ModelPath.Value)
	}
	if fc.Language.Valid {
		c.language = C.CString(fc.Language.Value)
	}
	c.model_size = C.int32_t(fc.ModelSize)
	c.translate = C.bool(fc.Translate)
	c.n_threads = C.uint32_t(fc.Threads)
	c.use_gpu = C.bool(fc.UseGPU)
	return unsafe.Pointer(c)
}

// FreeConfig releases a configuration made by NewConfig.
func FreeConfig(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	c := (*C.whisper_core_config)(ptr)
	C.free(unsafe.Pointer(c.model_path))
	C.free(unsafe.Pointer(c.language))
	C.free(ptr)
}

// NewSamples copies samples into C memory. Release it with Free.
func NewSamples(samples []float32) unsafe.Pointer {
	if len(samples) == 0 {
		return nil
	}
	size := C.size_t(len(samples)) * C.size_t(unsafe.Sizeof(float32(0)))
	ptr := C.malloc(size)
	copy(unsafe.Slice((*float32)(ptr), len(samples)), samples)
	return ptr
}

// NewCString copies s into C memory. Release it with Free.
func NewCString(s string) unsafe.Pointer {
	return unsafe.Pointer(C.CString(s))
}

// Free releases memory obtained from this package. NULL is ignored.
func Free(ptr unsafe.Pointer) {
	C.free(ptr)
}

// ReadRecord copies the whisper_core_result at ptr back into Go.
func ReadRecord(ptr unsafe.Pointer) bridge.Record {
	if ptr == nil {
		return bridge.Record{}
	}
	r := (*C.whisper_core_result)(ptr)
	return bridge.Record{
		Text:             GoString(unsafe.Pointer(r.text)).Value,
		Language:         GoString(unsafe.Pointer(r.language)).Value,
		SegmentCount:     int32(r.segments_count),
		ProcessingTimeMs: uint64(r.processing_time_ms),
		AudioDurationMs:  uint64(r.audio_duration_ms),
		Code:             bridge.ResultCode(r.error_code),
		ErrorMessage:     GoString(unsafe.Pointer(r.error_message)).Value,
		ErrorKind:        int32(r.error_kind),
	}
}

// HasStrings reports which string fields of the record at ptr are non-NULL.
func HasStrings(ptr unsafe.Pointer) (text, language, message bool) {
	if ptr == nil {
		return false, false, false
	}
	r := (*C.whisper_core_result)(ptr)
	return r.text != nil, r.language != nil, r.error_message != nil
}
