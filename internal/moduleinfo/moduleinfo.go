package moduleinfo

// Metadata captures static identifiers for the library. Centralising the values
// keeps the C header, the CLI and the default model directory in agreement.
type Metadata struct {
	Name        string
	BinaryName  string
	AppName     string
	Version     string
	Description string
}

// Info describes the current module.
var Info = Metadata{
	Name:        "whisper-core",
	BinaryName:  "whispercore",
	AppName:     "BetterFasterWhisper",
	Version:     "0.1.0",
	Description: "Local speech-to-text core backed by whisper.cpp.",
}

// ResultMetadata produces the standard metadata attached to transcripts
// rendered by the CLI.
func ResultMetadata(modelSize, language string) map[string]string {
	return map[string]string{
		"generator":  Info.Name,
		"version":    Info.Version,
		"model_size": modelSize,
		"language":   language,
	}
}

// Version returns the library version reported across the C boundary.
func Version() string { return Info.Version }
