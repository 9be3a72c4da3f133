// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey ContextKey = "request_id"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger

	// seenNodeKinds tracks node kinds already reported by UnknownNode so a
	// corpus of thousands of files cannot flood the log with one line per
	// occurrence. Reset between batch runs via ResetNodeKinds.
	seenNodeKinds sync.Map
)

func init() {
	// Initialize with a default logger (text format, Info level)
	InitLogger(LevelInfo, FormatText)
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

// InitLogger initializes the global logger with the specified level and format.
func InitLogger(level Level, format Format) {
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
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.With("request_id", requestID)
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

// HTTPRequestContext logs an HTTP request with context and common fields.
func HTTPRequestContext(ctx context.Context, method, path, remoteAddr string, statusCode int, duration time.Duration, args ...any) {
	allArgs := []any{
		"method", method,
		"path", path,
		"remote_addr", remoteAddr,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Info("http_request", allArgs...)
}

// DocumentProcessed logs the completion of one document's pipeline.
func DocumentProcessed(docID string, chapters int, duration time.Duration, args ...any) {
	allArgs := []any{
		"doc_id", docID,
		"chapters", chapters,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("document_processed", allArgs...)
}

// DocumentFailed logs a per-document pipeline failure. The batch continues.
func DocumentFailed(docID, path string, err error, args ...any) {
	allArgs := []any{
		"doc_id", docID,
		"path", path,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Error("document_failed", allArgs...)
}

// UnknownNode logs an unrecognized node kind, at most once per kind per run.
func UnknownNode(kind string, args ...any) {
	if _, loaded := seenNodeKinds.LoadOrStore(kind, true); loaded {
		return
	}
	allArgs := []any{"kind", kind}
	allArgs = append(allArgs, args...)
	defaultLogger.Warn("unknown_node_kind", allArgs...)
}

// MalformedMarker logs a chapter-boundary marker that could not be
// interpreted. The marker is treated as chapter-preserving.
func MalformedMarker(docID, attr string, args ...any) {
	allArgs := []any{
		"doc_id", docID,
		"attr", attr,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Warn("malformed_boundary_marker", allArgs...)
}

// ResetNodeKinds clears the once-per-kind suppression. Called at the start
// of each batch run so a fresh run reports its own gaps.
func ResetNodeKinds() {
	seenNodeKinds.Range(func(k, _ any) bool {
		seenNodeKinds.Delete(k)
		return true
	})
}

// BatchSummary logs the outcome of a batch run.
func BatchSummary(runID string, processed, failed int, elapsed time.Duration, args ...any) {
	allArgs := []any{
		"run_id", runID,
		"processed", processed,
		"failed", failed,
		"elapsed_s", elapsed.Seconds(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("batch_summary", allArgs...)
}

// WebSocketEvent logs WebSocket events.
func WebSocketEvent(event string, clientCount int, args ...any) {
	allArgs := []any{
		"event", event,
		"client_count", clientCount,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("websocket_event", allArgs...)
}

// ServerStartup logs server startup information.
func ServerStartup(serverType, protocol string, port int, args ...any) {
	allArgs := []any{
		"server_type", serverType,
		"protocol", protocol,
		"port", port,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("server_startup", allArgs...)
}
