package voice

import "strings"

// ContainsSentenceBoundary reports whether delta probably ends a sentence:
// it contains a period, "? ", or "! ". Abbreviations and decimals are
// accepted false positives.
func ContainsSentenceBoundary(delta string) bool {
	return strings.Contains(delta, ".") ||
		strings.Contains(delta, "? ") ||
		strings.Contains(delta, "! ")
}
