package medias

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomConverter(t *testing.T) {
	converter := NewRandomConverter()
	var calls int
	converter.OnPreGeneration(func(cmd string, args ...string) {
		calls++
	})

	src := filepath.Join(t.TempDir(), "diagram.jxl")
	dest := filepath.Join(t.TempDir(), "nested", "diagram.jpg")

	err := converter.ToJPEG(src, dest)
	require.NoError(t, err)
	assert.FileExists(t, dest)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`[a-z0-9]{32,}`), string(data))
	assert.Equal(t, 1, calls)
}
