// Command whispercore transcribes WAV files or microphone input with the same
// engine the shared library exposes.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
