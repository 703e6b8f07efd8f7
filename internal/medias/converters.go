package medias

import (
	"fmt"
	"strings"
)

// Converter re-encodes pictures Anki cannot display.
type Converter interface {
	OnPreGeneration(func(cmd string, args ...string))
	ToJPEG(src, dest string) error
}

// ConversionError reports a failed external conversion with the command output.
type ConversionError struct {
	Src    string
	Dest   string
	Err    error
	Output string
}

func (e *ConversionError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("converting %s to %s failed: %v", e.Src, e.Dest, e.Err)
	}
	return fmt.Sprintf("converting %s to %s failed: %v: %s", e.Src, e.Dest, e.Err, output)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// UnavailableConverter is used when the conversion tool is not installed.
// Conversions fail but pictures not requiring one are still supported.
type UnavailableConverter struct {
	Err error
}

func (c *UnavailableConverter) OnPreGeneration(func(cmd string, args ...string)) {}

func (c *UnavailableConverter) ToJPEG(src, dest string) error {
	return &ConversionError{Src: src, Dest: dest, Err: c.Err}
}
