package extract

import (
	"strings"
	"unicode/utf8"
)

// cleanText drops invalid UTF-8, normalizes line endings, and collapses runs
// of three or more newlines into paragraph breaks. Character offsets recorded
// by the chunker refer to the cleaned text.
func cleanText(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}
