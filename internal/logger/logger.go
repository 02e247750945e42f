// Package logger holds the process-wide structured logger used by arenakit
// components and the arenactl command.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() to enable logging.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// rotator is the open log file, if any. Close releases it.
var rotator *lumberjack.Logger

const (
	defaultMaxSizeMB  = 16
	defaultMaxAgeDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled    bool       // If false, all logging is discarded
	File       string     // Log file path. Empty logs text to Stderr
	Level      slog.Level // Minimum log level
	MaxSizeMB  int        // Rotate the file after this many megabytes. Default: 16
	MaxAgeDays int        // Delete rotated files older than this. Default: 30

	// Stderr receives text output when File is empty. Default: os.Stderr
	Stderr io.Writer
}

// Init configures logging. Call from main() before any log calls.
// If opts.Enabled is false, all log output is discarded.
func Init(opts Options) error {
	if err := Close(); err != nil {
		return err
	}
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	if opts.File == "" {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		L = slog.New(slog.NewTextHandler(w, handlerOpts))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return fmt.Errorf("logger: create log dir: %w", err)
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	maxAge := opts.MaxAgeDays
	if maxAge <= 0 {
		maxAge = defaultMaxAgeDays
	}

	rotator = &lumberjack.Logger{
		Filename: opts.File,
		MaxSize:  maxSize,
		MaxAge:   maxAge,
	}
	L = slog.New(slog.NewJSONHandler(rotator, handlerOpts))
	return nil
}

// Close flushes and closes the log file opened by Init, if any.
// The logger keeps discarding afterwards until Init is called again.
func Close() error {
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
	return err
}

// ParseLevel converts a level name (debug, info, warn, error) to a slog.Level.
// The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logger: %w", err)
	}
	return lvl, nil
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
