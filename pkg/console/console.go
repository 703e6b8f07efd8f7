package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ProgressLog rewrites a single terminal line to report progress.
// Safe for concurrent use.
type ProgressLog struct {
	mu            sync.Mutex
	output        io.Writer
	showBar       bool
	showPercent   bool
	maxSteps      int
	currentStep   int
	maxCharacters int
}

func NewProgressLog(maxSteps int, options ...func(*ProgressLog)) *ProgressLog {
	result := &ProgressLog{
		output:        os.Stderr,
		showBar:       true,
		maxSteps:      maxSteps,
		maxCharacters: 80,
	}
	for _, option := range options {
		option(result)
	}
	return result
}

func ToWriter(w io.Writer) func(*ProgressLog) {
	return func(s *ProgressLog) {
		s.output = w
	}
}

func HideBar() func(*ProgressLog) {
	return func(s *ProgressLog) {
		s.showBar = false
	}
}

func ShowPercent() func(*ProgressLog) {
	return func(s *ProgressLog) {
		s.showPercent = true
	}
}

func LineLength(characters int) func(*ProgressLog) {
	return func(s *ProgressLog) {
		s.maxCharacters = characters
	}
}

// Increment moves to the next step. Steps can complete in any order.
func (l *ProgressLog) Increment(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentStep++
	l.write(l.currentStep, message)
}

func (l *ProgressLog) Log(currentStep int, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentStep = currentStep
	l.write(currentStep, message)
}

func (l *ProgressLog) write(currentStep int, message string) {
	percent := 100
	if l.maxSteps > 0 {
		percent = currentStep * 100 / l.maxSteps
	}

	var sb strings.Builder
	if l.showBar {
		// Between 0 and 10 '#'
		filled := min(percent/10, 10)
		sb.WriteString(strings.Repeat("#", filled))
		sb.WriteString(strings.Repeat(" ", 10-filled))
		sb.WriteRune(' ')
	}
	if l.showPercent {
		fmt.Fprintf(&sb, "(%3d%%) ", percent)
	} else {
		fmt.Fprintf(&sb, "(%d/%d) ", currentStep, l.maxSteps)
	}
	sb.WriteString(message)

	fmt.Fprint(l.output, l.pad(sb.String()), "\r")
}

// Clear erases the progress line. A non-empty message replaces it and ends the line.
func (l *ProgressLog) Clear(newMessage string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprint(l.output, l.pad(newMessage))
	if newMessage == "" {
		fmt.Fprint(l.output, "\r")
	} else {
		fmt.Fprint(l.output, "\n")
	}
}

func (l *ProgressLog) pad(line string) string {
	if len(line) > l.maxCharacters {
		return line[:l.maxCharacters]
	}
	return line + strings.Repeat(" ", l.maxCharacters-len(line))
}
