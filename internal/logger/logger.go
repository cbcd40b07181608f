// Package logger writes leveled, printf-style diagnostics to stderr.
//
// Debug, Info and Section print only with --verbose. Warn and Error always
// print: they report soft failures such as a missing index or a skipped
// page.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var prefixes = [...]string{
	LevelDebug: "[DEBUG] ",
	LevelInfo:  "[INFO] ",
	LevelWarn:  "[WARN] ",
	LevelError: "[ERROR] ",
}

// String returns the level name without brackets.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

var (
	mu       sync.Mutex
	minLevel Level     = LevelWarn
	output   io.Writer = os.Stderr
)

// SetVerbose lowers the threshold to Debug, or restores it to Warn.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		minLevel = LevelDebug
	} else {
		minLevel = LevelWarn
	}
}

func IsVerbose() bool {
	return Enabled(LevelDebug)
}

// Enabled reports whether messages at l are printed.
func Enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l >= minLevel
}

// SetOutput redirects log output. Tests pass a buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(l Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < minLevel {
		return
	}
	fmt.Fprintf(output, prefixes[l]+format+"\n", args...)
}

func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

func Error(format string, args ...any) { logf(LevelError, format, args...) }

// Section prints a verbose-only banner separating pipeline stages.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if minLevel > LevelDebug {
		return
	}
	fmt.Fprintf(output, "\n=== %s ===\n", name)
}
