// Package logger holds the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/layer-3/wellness/config"
)

var (
	root     *slog.Logger
	levelVar = new(slog.LevelVar)
	logFile  *os.File
	mu       sync.Mutex
	initDone bool
)

// SetDebug enables or disables debug level logging
func SetDebug(enabled bool) {
	if enabled {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
}

// Init configures the root logger. Later calls are no-ops until Reset.
func Init(cfg config.LogConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return nil
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	levelVar.Set(level)

	var out io.Writer = os.Stderr
	if cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.Path, err)
		}
		logFile = f
		out = f
	}

	opts := &slog.HandlerOptions{Level: levelVar}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	root = slog.New(handler)
	initDone = true
	return nil
}

// Get returns the root logger, or slog.Default before Init.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if root == nil {
		return slog.Default()
	}
	return root
}

// WithComponent returns a logger with the component name attached.
//
//	log := logger.WithComponent("refresh")
//	log.Info("refresh failed", "error", err)
//	// Output: level=INFO msg="refresh failed" component=refresh error=...
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

// Watermill adapts the root logger for watermill publishers and subscribers.
func Watermill() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(WithComponent("events"))
}

// Close closes the log file
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	root = nil
}

// Reset resets the logger state, allowing reinitialization.
// This is primarily for testing purposes.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	initDone = false
	root = nil
	levelVar = new(slog.LevelVar)
}
