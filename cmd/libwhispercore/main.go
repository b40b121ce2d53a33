// Command libwhispercore is built with -buildmode=c-shared (or c-archive) and
// exposes the functions declared in include/whisper_core.h.
package main

/*
#cgo CFLAGS: -I${SRCDIR}/../../include
#define WHISPER_CORE_NO_PROTOTYPES
#include <stdlib.h>
#include "whisper_core.h"
*/
import "C"

import (
	"os"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/bridge"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/cabi"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/logging"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/moduleinfo"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/telemetry"
)

// Host applications get warnings and errors only unless they ask for more.
const defaultLogLevel = "warn"

var (
	registryOnce sync.Once
	registry     *bridge.Registry
)

func instance() *bridge.Registry {
	registryOnce.Do(func() {
		logger := newLogger()
		registry = bridge.NewRegistry(
			bridge.WithLogger(logger),
			bridge.WithRecorder(telemetry.NewRecorder(logger)),
		)
		logger.Debug("whisper-core loaded", zap.String("version", moduleinfo.Version()))
	})
	return registry
}

func newLogger() *zap.Logger {
	level := defaultLogLevel
	if v, ok := os.LookupEnv(config.EnvLogLevel); ok && v != "" {
		level = v
	}
	logger, err := logging.New(level, os.Getenv(config.EnvLogFormat))
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func result(rec bridge.Record) C.whisper_core_result {
	var out C.whisper_core_result
	cabi.WriteRecord(unsafe.Pointer(&out), rec)
	return out
}

//export whisper_core_init
func whisper_core_init(cfg *C.whisper_core_config) C.int32_t {
	fc, ok := cabi.ReadConfig(unsafe.Pointer(cfg))
	if !ok {
		code, _ := instance().Init(nil)
		return C.int32_t(code)
	}
	code, _ := instance().Init(&fc)
	return C.int32_t(code)
}

//export whisper_core_init_default
func whisper_core_init_default() C.int32_t {
	code, _ := instance().InitDefault()
	return C.int32_t(code)
}

//export whisper_core_transcribe
func whisper_core_transcribe(samples *C.float, n C.size_t, sampleRate C.uint32_t) C.whisper_core_result {
	buf := cabi.CopySamples(unsafe.Pointer(samples), int(n))
	return result(instance().Transcribe(buf, uint32(sampleRate)))
}

//export whisper_core_transcribe_file
func whisper_core_transcribe_file(path *C.char) C.whisper_core_result {
	return result(instance().TranscribeFile(cabi.GoString(unsafe.Pointer(path))))
}

//export whisper_core_free_result
func whisper_core_free_result(res *C.whisper_core_result) {
	cabi.FreeRecord(unsafe.Pointer(res))
}

//export whisper_core_shutdown
func whisper_core_shutdown() {
	instance().Shutdown()
}

//export whisper_core_version
func whisper_core_version() *C.char {
	return (*C.char)(cabi.Version())
}

//export whisper_core_is_initialized
func whisper_core_is_initialized() C.bool {
	return C.bool(instance().IsInitialized())
}

func main() {}
