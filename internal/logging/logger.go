// Package logging sets up the structured file logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// MaxLogSize is the size at which the log file is rotated on open (10MB)
	MaxLogSize = 10 * 1024 * 1024

	// DefaultLogFile is the default log file name
	DefaultLogFile = "sysmate.log"
)

// Options configures the logger.
type Options struct {
	// Dir holds the log file. "~" is expanded.
	Dir   string
	Level string
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultDir returns ~/.config/sysmate/logs.
func DefaultDir() string {
	return filepath.Join("~", ".config", "sysmate", "logs")
}

// New opens the log file and returns a JSON logger writing to it. The
// returned closer closes the file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	logDir, err := expandPath(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to expand log directory path: %w", err)
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilePath := filepath.Join(logDir, DefaultLogFile)
	rotateIfLarge(logFilePath)

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := NewWithWriter(logFile, ParseLevel(opts.Level))
	logger.Debug("logger initialized", "path", logFilePath)
	return logger, logFile, nil
}

// NewWithWriter returns a JSON logger writing to w.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	})
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// expandPath expands the ~ to the user's home directory
func expandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// rotateIfLarge moves an oversized log aside, replacing any older backup.
func rotateIfLarge(path string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() < MaxLogSize {
		return
	}
	_ = os.Rename(path, path+".1")
}
