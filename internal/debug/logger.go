// Package debug provides debug logging using log/slog. Logging is
// disabled until Init(true) is called; the engine routes every executed
// statement through Query.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Init enables or disables debug logging. When enabled, logs are
// written to os.Stderr.
func Init(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = enable
	if enable {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Enabled reports whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Query logs one executed SQL statement with its duration and outcome.
func Query(sqlText string, elapsed time.Duration, err error) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if err != nil {
		l.Debug("query failed", "sql", sqlText, "elapsed", elapsed, "error", err)
		return
	}
	l.Debug("query", "sql", sqlText, "elapsed", elapsed)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Warn(msg, args...)
}

// Logger returns the underlying slog.Logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
