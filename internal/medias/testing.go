package medias

import (
	"os"
	"path/filepath"

	"github.com/julien-sobczak/anksidian/internal/helpers"
)

// RandomConverter generates files containing fake data.
// Useful in tests to avoid depending on djxl.
type RandomConverter struct {
	listeners []func(cmd string, args ...string)
}

func NewRandomConverter() *RandomConverter {
	return &RandomConverter{}
}

func (c *RandomConverter) OnPreGeneration(fn func(cmd string, args ...string)) {
	c.listeners = append(c.listeners, fn)
}

func (c *RandomConverter) notifyListeners(cmd string, args ...string) {
	for _, fn := range c.listeners {
		fn(cmd, args...)
	}
}

func (c *RandomConverter) ToJPEG(src, dest string) error {
	c.notifyListeners("convert", src, dest)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	// Same name, same content. Directories differ between tests.
	return os.WriteFile(dest, []byte(helpers.ChecksumString(filepath.Base(dest))), 0644)
}
