package anki

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport wraps network failures. These errors are retried.
	ErrTransport = errors.New("AnkiConnect unreachable")
	// ErrBothResultAndError is returned when a response sets both result and error.
	ErrBothResultAndError = errors.New("response contains both result and error")
	// ErrNeitherResultNorError is returned when a response sets neither result nor error.
	// AnkiConnect answers this way to actions without result (ex: updateNote).
	ErrNeitherResultNorError = errors.New("response contains neither result nor error")
)

// duplicateMessage is the error returned by AnkiConnect when adding an existing note.
const duplicateMessage = "cannot create note because it is a duplicate"

// ProtocolError is an error reported by AnkiConnect.
type ProtocolError struct {
	Action  string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

// HTTPStatusError is returned when AnkiConnect answers with a non-2xx status.
type HTTPStatusError struct {
	Action     string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Action, e.StatusCode, strings.TrimSpace(e.Body))
}

// IsDuplicate returns if the error reports a note already present in the deck.
func IsDuplicate(err error) bool {
	var protocolErr *ProtocolError
	if !errors.As(err, &protocolErr) {
		return false
	}
	return strings.Contains(protocolErr.Message, duplicateMessage)
}

// IsTransport returns if the error is a network failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
