// Package logger provides logging for the tally CLI and its services.
//
// Services receive a structured *Logger (zap-backed, key/value pairs).
// The package-level functions print human-oriented progress lines that
// appear only when verbose mode is enabled via the --verbose flag.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	std               = NewWriter(os.Stderr, zapcore.ErrorLevel)
)

// SetVerbose enables or disables verbose logging.
// Verbose mode lowers the shared logger to debug level.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// L returns the shared structured logger. It writes errors only unless
// verbose mode is enabled.
func L() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// rebuild must be called with mu held.
func rebuild() {
	level := zapcore.ErrorLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	std = NewWriter(output, level)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	printf("DEBUG", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	printf("INFO", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	printf("WARN", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func printf(level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "["+level+"] "+format+"\n", args...)
	}
}
