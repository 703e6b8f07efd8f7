package text_test

import (
	"testing"

	"github.com/julien-sobczak/anksidian/pkg/text"
	"github.com/stretchr/testify/assert"
)

func TestIsBlank(t *testing.T) {
	assert.True(t, text.IsBlank(""))
	assert.True(t, text.IsBlank(" \t\n"))
	assert.False(t, text.IsBlank(" a "))
}

func TestTrimExtension(t *testing.T) {
	assert.Equal(t, "notes/go", text.TrimExtension("notes/go.md"))
	assert.Equal(t, "notes/go", text.TrimExtension("notes/go"))
	assert.Equal(t, "archive.tar", text.TrimExtension("archive.tar.gz"))
}

func TestExcerpt(t *testing.T) {
	var tests = []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"Short", "Go is fun", 20, "Go is fun"},
		{"Truncated", "Go is a statically typed language", 8, "Go is a …"},
		{"Multiline", "Go\n\nis   fun", 20, "Go is fun"},
		{"Unicode", "ééééé", 3, "ééé…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, text.Excerpt(tt.input, tt.max))
		})
	}
}

func TestCountLeading(t *testing.T) {
	assert.Equal(t, 3, text.CountLeading("### Title", '#'))
	assert.Equal(t, 0, text.CountLeading("Title", '#'))
	assert.Equal(t, 2, text.CountLeading("##", '#'))
}
