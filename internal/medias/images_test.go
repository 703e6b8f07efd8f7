package medias

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImage(t *testing.T) {
	for _, path := range []string{
		"a.jpg", "a.jpeg", "a.jxl", "a.png", "a.gif", "a.bmp", "a.svg",
		"a.webp", "a.apng", "a.ico", "a.tif", "a.tiff", "a.avif", "dir/A.PNG",
	} {
		assert.True(t, IsImage(path), path)
	}
	for _, path := range []string{"a.md", "a.pdf", "a", "png", "a.mp4"} {
		assert.False(t, IsImage(path), path)
	}
}

func TestNeedsConversion(t *testing.T) {
	assert.True(t, NeedsConversion("a.jxl"))
	assert.True(t, NeedsConversion("a.JXL"))
	assert.False(t, NeedsConversion("a.jpg"))
}

func TestMediaFilename(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"gopher.png", "gopher.png"},
		{"assets/Go Gopher.jxl", "assets-go-gopher.jpg"},
		{"assets/diagram.SVG", "assets-diagram.svg"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, MediaFilename(tt.path))
		})
	}
}
