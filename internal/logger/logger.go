// Package logger provides process-wide logging for guestmail.
// Warnings and errors are always written to stderr; debug and info
// messages appear once verbose mode is enabled via the --verbose flag.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	level             = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	base              = build(os.Stderr)
)

// build creates a console logger writing to w at the shared level.
func build(w io.Writer) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.WarnLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level by name ("debug", "info", "warn", "error").
func SetLevel(name string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	level.SetLevel(l)
	return nil
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = build(w)
}

// L returns the structured logger for callers that attach fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	L().Sugar().Debugf(format, args...)
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	L().Sugar().Infof(format, args...)
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...any) {
	L().Sugar().Warnf(format, args...)
}

// Error logs a formatted message at error level.
func Error(format string, args ...any) {
	L().Sugar().Errorf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync() //nolint:errcheck // stderr sync fails on some platforms
}
