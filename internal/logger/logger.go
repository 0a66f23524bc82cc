// Package logger provides structured logging for the IMMCAD API service.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the global application logger instance.
var Logger *slog.Logger

var auditLogger *slog.Logger

// Init initializes a JSON logger with trace context support and derives the
// dedicated audit channel logger from it.
func Init() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	// Wrap with TraceContextHandler to include trace_id/span_id in stdout logs
	handler := NewTraceContextHandler(jsonHandler)

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
	auditLogger = Logger.With("channel", "audit")

	Logger.Info("logger initialized", "level", level.String())

	return Logger
}

// Audit returns the dedicated audit-event logger. Audit events never carry
// raw user message content, only trace id, event type, locale, mode,
// message length, and (when applicable) provider and error code.
func Audit() *slog.Logger {
	if auditLogger == nil {
		Init()
	}
	return auditLogger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
