// Package obs contains observability utilities such as logging and metrics.
package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global structured logger used by the service.
//
// Logger is exported to allow other packages to use it for logging. It starts
// as an info-level JSON logger so packages are usable before InitLogger runs.
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// InitLogger initializes the global Logger with JSON handler at info level.
//
// InitLogger is exported to allow other packages to initialize the Logger.
func InitLogger() {
	InitLoggerLevel("info")
}

// InitLoggerLevel initializes the global Logger at the named level
// (debug, info, warn or error). Unknown names fall back to info.
func InitLoggerLevel(level string) {
	Logger = NewLogger(os.Stdout, level)
}

// NewLogger builds a JSON logger writing to w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
