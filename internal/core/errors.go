package core

import "fmt"

// FileError reports a failure preventing a whole file from being synchronized.
type FileError struct {
	RelativePath string
	Op           string
	Err          error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.RelativePath, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
