package medias

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeType(t *testing.T) {
	tests := []struct {
		extension string // input
		mimeType  string // output
	}{
		{".png", "image/png"},
		{".PNG", "image/png"},
		{".jxl", "image/jxl"},
		{".mp3", "audio/mpeg"},
		{".mp9999", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.mimeType, MimeType(tt.extension))
	}
}
