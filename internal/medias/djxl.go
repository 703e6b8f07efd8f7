package medias

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DjxlConverter decodes JPEG XL pictures using the reference decoder.
//
// Requirements:
//
//	brew install jpeg-xl
type DjxlConverter struct {
	exe       string
	listeners []func(cmd string, args ...string)
}

func NewDjxlConverter(command string) (*DjxlConverter, error) {
	if command == "" {
		command = "djxl"
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("executable %q not found in $PATH", command)
	}
	return &DjxlConverter{
		exe: path,
	}, nil
}

func (c *DjxlConverter) OnPreGeneration(fn func(cmd string, args ...string)) {
	c.listeners = append(c.listeners, fn)
}

func (c *DjxlConverter) notifyListeners(cmd string, args ...string) {
	for _, fn := range c.listeners {
		fn(cmd, args...)
	}
}

// ToJPEG converts a picture to JPEG. The output format is determined by djxl from the extension.
//
//	$ djxl picture.jxl picture.jpg
func (c *DjxlConverter) ToJPEG(srcPath string, destPath string) error {
	destExt := strings.ToLower(filepath.Ext(destPath))
	if destExt != ".jpg" && destExt != ".jpeg" {
		return fmt.Errorf("target file must use extension .jpg. Got: %s", destExt)
	}

	// Check src file exists
	if _, err := os.Stat(srcPath); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}

	c.notifyListeners(c.exe, srcPath, destPath)
	cmd := exec.CommandContext(context.Background(), c.exe, srcPath, destPath)

	// Dump output to troubleshoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &ConversionError{
			Src:    srcPath,
			Dest:   destPath,
			Err:    err,
			Output: string(output),
		}
	}
	return nil
}
