// Package lang provides best-effort natural language detection.
//
// Detection is purely informational: it annotates ingested files and incoming
// questions but never influences retrieval or generation. Accordingly it
// never fails; anything unclassifiable maps to the Unknown sentinel.
package lang

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Unknown is returned when the language cannot be determined.
const Unknown = "unknown"

// minConfidence is the classifier confidence below which the result is
// treated as noise. Short or mixed-script inputs routinely fall below it.
const minConfidence = 0.5

// Detect returns the ISO 639-1 code of the dominant language of text,
// or Unknown when the input is empty, too short, or ambiguous.
func Detect(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unknown
	}

	info := whatlanggo.Detect(text)
	if info.Lang == -1 || info.Confidence < minConfidence {
		return Unknown
	}

	code := info.Lang.Iso6391()
	if code == "" {
		// Some languages have no ISO 639-1 code; fall back to 639-3.
		code = info.Lang.Iso6393()
	}
	if code == "" {
		return Unknown
	}
	return code
}
