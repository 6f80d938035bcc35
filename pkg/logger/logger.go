// Package logger provides structured logging for mailflow.
//
// It wraps the standard library slog with level and format selection so
// the CLI can switch between human-readable console output and JSON.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

var log *slog.Logger = slog.Default()

// Initialize configures the package-level logger. Level is one of
// debug, info, warn, error; format is "console" or "json".
func Initialize(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log = slog.New(handler)
	slog.SetDefault(log)
}

func Debug(msg string, args ...any) { log.Debug(msg, args...) }

func Info(msg string, args ...any) { log.Info(msg, args...) }

func Warn(msg string, args ...any) { log.Warn(msg, args...) }

func Error(msg string, args ...any) { log.Error(msg, args...) }
