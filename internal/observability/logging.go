// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger.Store(slog.New(handler))
}

// SetLogger replaces the logger used by the helpers in this package.
// The server installs the request-aware logger here during bootstrap.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// Log returns the current package logger.
func Log() *slog.Logger {
	return logger.Load()
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableWSLogging    bool
	EnableAsyncLogging bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableWSLogging:    true,
	EnableAsyncLogging: true,
}

// WSLogger provides structured logging for push connections.
type WSLogger struct {
	hubName string
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{hubName: hubName}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, userID, sessionID string) {
	if !Config.EnableWSLogging {
		return
	}
	Log().InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID, sessionID, reason string) {
	if !Config.EnableWSLogging {
		return
	}
	Log().InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, sessionID string, err error, eventType string) {
	if !Config.EnableWSLogging {
		return
	}
	Log().ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.String("session_id", sessionID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogAsyncOperationStart logs the start of a background operation.
func LogAsyncOperationStart(ctx context.Context, operation string, attrs ...any) {
	if !Config.EnableAsyncLogging {
		return
	}
	attrs = append(attrs, slog.String("operation", operation), slog.String("type", "async_start"))
	Log().InfoContext(ctx, "async operation started", attrs...)
}

// LogAsyncOperationEnd logs the completion of a background operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, attrs ...any) {
	if !Config.EnableAsyncLogging {
		return
	}
	attrs = append(attrs, slog.String("operation", operation), slog.String("type", "async_end"))
	Log().InfoContext(ctx, "async operation completed", attrs...)
}

// LogAsyncOperationError logs a failed background operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, attrs ...any) {
	attrs = append(attrs,
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	)
	Log().ErrorContext(ctx, "async operation failed", attrs...)
}
