// Package logging configures the application logger. The terminal is
// owned by the UI, so logs go to a file under the config directory.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultLogPath returns the default log file location,
// ~/.config/civiceye/civiceye.log.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "civiceye.log")
	}
	return filepath.Join(home, ".config", "civiceye", "civiceye.log")
}

// Open creates a JSON slog.Logger writing to the given file, creating
// parent directories as needed. The returned close function flushes
// and closes the file.
func Open(path string) (*slog.Logger, func() error, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return logger, f.Close, nil
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
