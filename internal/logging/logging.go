// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// PassIDKey is the context key for patch pass IDs.
	PassIDKey ContextKey = "pass_id"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	// Initialize with a default logger (JSON format, Info level)
	InitLogger(LevelInfo, FormatJSON)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// ParseLevel maps a level name to a Level. Unknown names give LevelInfo and
// false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// ParseFormat maps a format name to a Format. Unknown names give FormatJSON
// and false.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, true
	case "text":
		return FormatText, true
	default:
		return FormatJSON, false
	}
}

// InitLogger initializes the global logger with the specified level and
// format. Logs go to stderr; stdout carries command output.
func InitLogger(level Level, format Format) {
	InitLoggerWithWriter(level, format, os.Stderr)
}

// InitLoggerWithWriter is InitLogger with an explicit destination.
func InitLoggerWithWriter(level Level, format Format, w io.Writer) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// NewPassID returns a fresh identifier for one patch pass.
func NewPassID() string {
	return uuid.NewString()
}

// WithPassID adds a pass ID to the context.
func WithPassID(ctx context.Context, passID string) context.Context {
	return context.WithValue(ctx, PassIDKey, passID)
}

// GetPassID retrieves the pass ID from the context.
func GetPassID(ctx context.Context) string {
	if passID, ok := ctx.Value(PassIDKey).(string); ok {
		return passID
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if passID := GetPassID(ctx); passID != "" {
		logger = logger.With("pass_id", passID)
	}
	return logger
}

// Helper functions for common logging patterns

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// DebugContext logs a debug message with context.
func DebugContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Debug(msg, args...)
}

// InfoContext logs an info message with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Info(msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

// ErrorContext logs an error message with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Error(msg, args...)
}

// PassStarted logs the start of a patch pass.
func PassStarted(ctx context.Context, fingerprint string, blocks, requests int, args ...any) {
	allArgs := []any{
		"fingerprint", fingerprint,
		"blocks", blocks,
		"requests", requests,
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Info("pass_started", allArgs...)
}

// PassFinished logs the aggregate outcome of a patch pass. Unmatched
// requests are only ever reported as a count here.
func PassFinished(ctx context.Context, matched, dropped, written int, duration time.Duration, args ...any) {
	allArgs := []any{
		"matched", matched,
		"dropped", dropped,
		"written", written,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Info("pass_finished", allArgs...)
}

// EditDropped logs one unmatched request at debug level.
func EditDropped(ctx context.Context, index int, best float64, args ...any) {
	allArgs := []any{
		"index", index,
		"best_score", best,
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Debug("edit_dropped", allArgs...)
}

// BatchJob logs the completion of one batch job.
func BatchJob(name string, err error, duration time.Duration, args ...any) {
	allArgs := []any{
		"job", name,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	if err != nil {
		allArgs = append(allArgs, "error", err.Error())
		defaultLogger.Error("batch_job", allArgs...)
		return
	}
	defaultLogger.Info("batch_job", allArgs...)
}
