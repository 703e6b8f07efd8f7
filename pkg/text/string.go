package text

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// IsBlank returns if a text is blank.
func IsBlank(text string) bool {
	return len(strings.TrimSpace(text)) == 0
}

// TrimExtension removes the extension from a file name or file path.
func TrimExtension(path string) string {
	path = strings.TrimSuffix(path, string(filepath.Separator))
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Excerpt returns the first characters of a text on a single line.
// Used to locate a note in log messages.
func Excerpt(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// CountLeading returns how many times the character c is repeated at the start of text.
func CountLeading(text string, c byte) int {
	i := 0
	for i < len(text) && text[i] == c {
		i++
	}
	return i
}
