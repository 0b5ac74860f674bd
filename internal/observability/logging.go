// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// WSLogger provides structured logging for notification socket lifecycles.
type WSLogger struct {
	hubName string
	logger  *slog.Logger
}

// NewWSLogger creates a WSLogger for the given hub. A nil logger falls back to slog's default.
func NewWSLogger(hubName string, logger *slog.Logger) *WSLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSLogger{hubName: hubName, logger: logger}
}

// LogConnect logs a socket that finished its handshake.
func (l *WSLogger) LogConnect(ctx context.Context, userID uint) {
	l.logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
	)
}

// LogDisconnect logs a closed socket and how long it stayed open.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, connectedAt time.Time) {
	l.logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.Duration("duration", time.Since(connectedAt)),
	)
}

// LogError logs a socket that could not be served.
func (l *WSLogger) LogError(ctx context.Context, userID uint, err error, eventType string) {
	l.logger.WarnContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
