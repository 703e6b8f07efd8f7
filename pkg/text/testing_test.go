package text_test

import (
	"testing"

	"github.com/julien-sobczak/anksidian/pkg/text"
	"github.com/stretchr/testify/assert"
)

func TestUnescapeTestContent(t *testing.T) {
	var tests = []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Replace special backtick character ”",
			input:    "”fmt.Println()”",
			expected: "`fmt.Println()`",
		},
		{
			name:     "Replace special backtick character ‛",
			input:    "‛fmt.Println()‛",
			expected: "`fmt.Println()`",
		},
		{
			name:     "Replace both special backtick characters",
			input:    "”fmt.Println()‛",
			expected: "`fmt.Println()`",
		},
		{
			name:     "No special characters",
			input:    "fmt.Println()",
			expected: "fmt.Println()",
		},
		{
			name:     "Mixed content",
			input:    "Call ”fmt.Println()‛ now",
			expected: "Call `fmt.Println()` now",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, text.UnescapeTestContent(tt.input))
		})
	}
}
