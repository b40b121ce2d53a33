// Package cabi converts between the C structs declared in whisper_core.h and
// the bridge package's Go values. Pointers are passed as unsafe.Pointer
// because cgo types are private to each package.
package cabi

/*
#cgo CFLAGS: -I${SRCDIR}/../../include
#define WHISPER_CORE_NO_PROTOTYPES
#include <stdlib.h>
#include "whisper_core.h"
*/
import "C"

import (
	"slices"
	"strings"
	"sync"
	"unsafe"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/bridge"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/moduleinfo"
)

// RecordSize is sizeof(whisper_core_result).
var RecordSize = int(C.sizeof_whisper_core_result)

// ReadConfig copies the whisper_core_config at ptr. ok is false for NULL.
func ReadConfig(ptr unsafe.Pointer) (cfg bridge.ForeignConfig, ok bool) {
	if ptr == nil {
		return bridge.ForeignConfig{}, false
	}
	c := (*C.whisper_core_config)(ptr)
	return bridge.ForeignConfig{
		ModelPath: GoString(unsafe.Pointer(c.model_path)),
		ModelSize: int32(c.model_size),
		Language:  GoString(unsafe.Pointer(c.language)),
		Translate: bool(c.translate),
		Threads:   uint32(c.n_threads),
		UseGPU:    bool(c.use_gpu),
	}, true
}

// GoString copies a NUL-terminated C string.
func GoString(ptr unsafe.Pointer) bridge.NullString {
	if ptr == nil {
		return bridge.NullString{}
	}
	return bridge.String(C.GoString((*C.char)(ptr)))
}

// CopySamples copies n floats out of caller memory. The returned slice never
// aliases ptr.
func CopySamples(ptr unsafe.Pointer, n int) []float32 {
	if ptr == nil || n <= 0 {
		return nil
	}
	return slices.Clone(unsafe.Slice((*float32)(ptr), n))
}

// WriteRecord fills the whisper_core_result at dst. Text and language are
// allocated only for successful records, the error message only when present.
// The caller releases them with FreeRecord.
func WriteRecord(dst unsafe.Pointer, rec bridge.Record) {
	if dst == nil {
		return
	}
	out := (*C.whisper_core_result)(dst)
	*out = C.whisper_core_result{
		segments_count:     C.int32_t(rec.SegmentCount),
		processing_time_ms: C.uint64_t(rec.ProcessingTimeMs),
		audio_duration_ms:  C.uint64_t(rec.AudioDurationMs),
		error_code:         C.int32_t(rec.Code),
		error_kind:         C.int32_t(rec.ErrorKind),
	}
	if rec.Code == bridge.Success {
		out.text = cString(rec.Text)
		out.language = cString(rec.Language)
	}
	if rec.ErrorMessage != "" {
		out.error_message = cString(rec.ErrorMessage)
	}
}

// FreeRecord releases the strings in the whisper_core_result at ptr and nulls
// them, so a second call is harmless.
func FreeRecord(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	r := (*C.whisper_core_result)(ptr)
	for _, p := range []**C.char{&r.text, &r.language, &r.error_message} {
		if *p != nil {
			C.free(unsafe.Pointer(*p))
			*p = nil
		}
	}
}

var (
	versionOnce sync.Once
	versionPtr  *C.char
)

// Version returns a C string that lives for the whole process.
func Version() unsafe.Pointer {
	versionOnce.Do(func() {
		versionPtr = C.CString(moduleinfo.Version())
	})
	return unsafe.Pointer(versionPtr)
}

// cString allocates s with malloc. C sees the text up to the first NUL.
func cString(s string) *C.char {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return C.CString(s)
}
