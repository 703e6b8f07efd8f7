package maths

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"unicode/utf8"
)

/*
 * Formulas are written either in Typst or in LaTeX. Anki only understands LaTeX (MathJax).
 *
 * We cannot tell the two syntaxes apart reliably so we ask Typst:
 *
 *    $ echo '$ sum_(i=0)^n i $' | typst c - -f pdf /dev/null
 *
 * If the compilation succeeds, the formula is converted using Pandoc:
 *
 *    $ echo '$ sum_(i=0)^n i $' | pandoc -f typst -t latex
 *    \[\sum_{i = 0}^{n}i\]
 *
 * Otherwise, the formula is considered to be LaTeX already.
 */

type cacheKey struct {
	raw     string
	display bool
}

// Converter converts formulas to LaTeX understood by Anki.
type Converter struct {
	typst     string // Empty when Typst is not installed
	pandoc    string
	listeners []func(cmd string, args ...string)

	mu    sync.Mutex
	cache map[cacheKey]string
}

// NewConverter locates the typst and pandoc executables.
// A missing typst executable is not an error: all formulas are then considered LaTeX.
func NewConverter(typstCommand, pandocCommand string) *Converter {
	if typstCommand == "" {
		typstCommand = "typst"
	}
	if pandocCommand == "" {
		pandocCommand = "pandoc"
	}
	c := &Converter{
		pandoc: pandocCommand,
		cache:  make(map[cacheKey]string),
	}
	if path, err := exec.LookPath(typstCommand); err == nil {
		c.typst = path
	}
	if path, err := exec.LookPath(pandocCommand); err == nil {
		c.pandoc = path
	}
	return c
}

// NewLatexConverter returns a converter considering all formulas as LaTeX.
func NewLatexConverter() *Converter {
	return &Converter{
		cache: make(map[cacheKey]string),
	}
}

// TypstAvailable returns if Typst formulas can be detected.
func (c *Converter) TypstAvailable() bool {
	return c.typst != ""
}

func (c *Converter) OnCommand(fn func(cmd string, args ...string)) {
	c.listeners = append(c.listeners, fn)
}

func (c *Converter) notifyListeners(cmd string, args ...string) {
	for _, fn := range c.listeners {
		fn(cmd, args...)
	}
}

// Convert returns the LaTeX version of a formula, raw being the text between the $ delimiters.
func (c *Converter) Convert(ctx context.Context, raw string, display bool) (string, error) {
	key := cacheKey{raw: raw, display: display}
	c.mu.Lock()
	result, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return result, nil
	}

	source := "$" + raw + "$"
	if display {
		// Typst requires spaces to render a block equation
		source = "$ " + raw + " $"
	}

	isTypst := false
	if c.typst != "" {
		var err error
		isTypst, err = c.IsTypst(ctx, source)
		if err != nil {
			return "", err
		}
	}

	if isTypst {
		var err error
		result, err = c.TypstToLatex(ctx, source)
		if err != nil {
			return "", err
		}
	} else if display {
		result = `\[` + raw + `\]`
	} else {
		result = `\(` + raw + `\)`
	}
	result = EscapeClozeEnd(result)

	c.mu.Lock()
	c.cache[key] = result
	c.mu.Unlock()
	return result, nil
}

// IsTypst returns if the source compiles with Typst.
func (c *Converter) IsTypst(ctx context.Context, source string) (bool, error) {
	args := []string{"c", "-", "-f", "pdf", "/dev/null"}
	c.notifyListeners(c.typst, args...)
	cmd := exec.CommandContext(ctx, c.typst, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return false, &IsTypstError{Stage: StageSpawn, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return false, &IsTypstError{Stage: StageSpawn, Err: err}
	}
	if _, err := io.WriteString(stdin, source); err != nil {
		stdin.Close()
		_ = cmd.Wait()
		return false, &IsTypstError{Stage: StageStdinWrite, Err: err}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Not valid Typst
			return false, nil
		}
		return false, &IsTypstError{Stage: StageWait, Err: err}
	}
	return true, nil
}

// TypstToLatex converts a Typst document to LaTeX using Pandoc.
func (c *Converter) TypstToLatex(ctx context.Context, source string) (string, error) {
	args := []string{"-f", "typst", "-t", "latex"}
	c.notifyListeners(c.pandoc, args...)
	cmd := exec.CommandContext(ctx, c.pandoc, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", &TypstToLatexError{Stage: StageSpawn, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return "", &TypstToLatexError{Stage: StageSpawn, Err: err}
	}
	if _, err := io.WriteString(stdin, source); err != nil {
		stdin.Close()
		_ = cmd.Wait()
		return "", &TypstToLatexError{Stage: StageStdinWrite, Err: err}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &TypstToLatexError{Stage: StageExit, Err: err, Stderr: strings.TrimSpace(stderr.String())}
		}
		return "", &TypstToLatexError{Stage: StageWait, Err: err}
	}

	output := stdout.String()
	if !utf8.ValidString(output) {
		return "", &TypstToLatexError{Stage: StageUTF8, Err: errors.New("invalid UTF-8 sequence")}
	}
	return strings.TrimSuffix(output, "\n"), nil
}

// EscapeClozeEnd inserts a space between consecutive closing braces.
// Anki would otherwise end the cloze deletion at the first "}}".
func EscapeClozeEnd(s string) string {
	for strings.Contains(s, "}}") {
		s = strings.ReplaceAll(s, "}}", "} }")
	}
	return s
}
