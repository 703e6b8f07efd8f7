package core

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julien-sobczak/anksidian/pkg/resync"
)

var (
	// Lazy-load and ensure a single read
	loggerOnce      resync.Once
	loggerSingleton *Logger
)

type VerboseLevel int

const (
	VerboseOff VerboseLevel = iota
	VerboseInfo
	VerboseDebug
	VerboseTrace
)

func CurrentLogger() *Logger {
	loggerOnce.Do(func() {
		loggerSingleton = NewLogger(os.Stderr)
	})
	return loggerSingleton
}

// Logger filters messages based on the verbose level.
// Warnings and errors are always printed.
type Logger struct {
	verbose VerboseLevel
	backend *log.Logger
}

func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		backend: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		}),
	}
	return l.SetVerboseLevel(VerboseOff)
}

// SetVerboseLevel overrides the default verbose level
func (l *Logger) SetVerboseLevel(level VerboseLevel) *Logger {
	l.verbose = level
	switch level {
	case VerboseOff:
		l.backend.SetLevel(log.WarnLevel)
	case VerboseInfo:
		l.backend.SetLevel(log.InfoLevel)
	default:
		l.backend.SetLevel(log.DebugLevel)
	}
	return l
}

// SetOutput redirects messages (ex: to silence tests).
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.backend.SetOutput(w)
	return l
}

// Backend returns the underlying structured logger to share with other packages.
func (l *Logger) Backend() *log.Logger {
	return l.backend
}

func (l *Logger) Fatal(v ...any) {
	l.backend.Fatal(fmt.Sprint(v...))
}
func (l *Logger) Fatalf(format string, v ...any) {
	l.backend.Fatalf(format, v...)
}

// Error logs a failure with structured key-value pairs.
func (l *Logger) Error(msg string, keyvals ...any) {
	l.backend.Error(msg, keyvals...)
}

func (l *Logger) Warn(v ...any) {
	l.backend.Warn(fmt.Sprint(v...))
}
func (l *Logger) Warnf(format string, v ...any) {
	l.backend.Warnf(format, v...)
}

// Warnw logs a warning with structured key-value pairs.
func (l *Logger) Warnw(msg string, keyvals ...any) {
	l.backend.Warn(msg, keyvals...)
}

func (l *Logger) Info(v ...any) {
	if l.verbose >= VerboseInfo {
		l.backend.Info(fmt.Sprint(v...))
	}
}
func (l *Logger) Infof(format string, v ...any) {
	if l.verbose >= VerboseInfo {
		l.backend.Infof(format, v...)
	}
}

func (l *Logger) Debug(v ...any) {
	if l.verbose >= VerboseDebug {
		l.backend.Debug(fmt.Sprint(v...))
	}
}
func (l *Logger) Debugf(format string, v ...any) {
	if l.verbose >= VerboseDebug {
		l.backend.Debugf(format, v...)
	}
}

func (l *Logger) Trace(v ...any) {
	if l.verbose >= VerboseTrace {
		l.backend.Debug(fmt.Sprint(v...))
	}
}
func (l *Logger) Tracef(format string, v ...any) {
	if l.verbose >= VerboseTrace {
		l.backend.Debugf(format, v...)
	}
}
