package maths

import "fmt"

// Stage identifies which step of a subprocess call failed.
type Stage string

const (
	StageSpawn      Stage = "spawn"
	StageStdinWrite Stage = "stdin write"
	StageWait       Stage = "wait"
	StageExit       Stage = "exit status"
	StageUTF8       Stage = "utf-8 output"
)

// IsTypstError is returned when the Typst probe cannot run.
// A probe that runs but fails to compile is not an error: the formula is LaTeX.
type IsTypstError struct {
	Stage Stage
	Err   error
}

func (e *IsTypstError) Error() string {
	return fmt.Sprintf("checking if math is typst failed (%s): %v", e.Stage, e.Err)
}

func (e *IsTypstError) Unwrap() error {
	return e.Err
}

// TypstToLatexError is returned when Typst cannot be converted to LaTeX.
type TypstToLatexError struct {
	Stage  Stage
	Err    error
	Stderr string
}

func (e *TypstToLatexError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("converting typst to latex failed (%s): %v: %s", e.Stage, e.Err, e.Stderr)
	}
	return fmt.Sprintf("converting typst to latex failed (%s): %v", e.Stage, e.Err)
}

func (e *TypstToLatexError) Unwrap() error {
	return e.Err
}
