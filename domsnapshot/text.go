package domsnapshot

import (
	"golang.org/x/text/unicode/norm"
)

// maxTextLength truncates s to at most maxLen runes, then trims back to the
// nearest normalization boundary so a truncated grapheme cluster (e.g. a
// base rune followed by a combining mark) is never split mid-sequence.
func maxTextLength(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	truncated := []byte(string(runes[:maxLen]))

	if b := norm.NFC.LastBoundary(truncated); b > 0 {
		return string(truncated[:b])
	}
	return string(truncated)
}
