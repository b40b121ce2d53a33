package engine

import "strings"

const (
	autoLanguage     = "auto"
	fallbackLanguage = "en"
)

var (
	blankMarkers     = []string{"[BLANK_AUDIO]"}
	nonSpeechMarkers = []string{"[SILENCE]", "(silence)"}
)

// suppressed reports whether a decoded segment is dropped. Empty text always
// is; markers only when the matching flag is set.
func suppressed(text string, params InferenceParams) bool {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return true
	case params.SuppressBlank && isMarker(trimmed, blankMarkers):
		return true
	case params.SuppressNonSpeech && isMarker(trimmed, nonSpeechMarkers):
		return true
	}
	return false
}

func isMarker(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.EqualFold(text, marker) {
			return true
		}
	}
	return false
}

// normaliseLanguage returns candidate, then fallback, then "auto".
func normaliseLanguage(candidate, fallback string) string {
	if trimmed := strings.TrimSpace(candidate); trimmed != "" {
		return strings.ToLower(trimmed)
	}
	if trimmed := strings.TrimSpace(fallback); trimmed != "" {
		return strings.ToLower(trimmed)
	}
	return autoLanguage
}

func isAuto(lang string) bool {
	return strings.EqualFold(strings.TrimSpace(lang), autoLanguage)
}
