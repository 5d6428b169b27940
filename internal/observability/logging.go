// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger so the process logger can be swapped at startup.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application. It writes
// JSON to stdout until SetLogger installs the configured one.
var GlobalLogger = &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))}

// SetLogger replaces the logger behind GlobalLogger.
func SetLogger(l *slog.Logger) {
	GlobalLogger = &Logger{Logger: l}
}

type correlationKey struct{}

// RepoLogging toggles the per-mutation records written by RepoLogger.
var RepoLogging = true

// GenerateCorrelationID returns a fresh ID for work that has no request ID,
// such as the admin and seed commands.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// RepoLogger records store mutations under one path root (profiles, friends,
// requests, scores).
type RepoLogger struct {
	collection string
}

// NewRepoLogger creates a new RepoLogger for the given collection.
func NewRepoLogger(collection string) *RepoLogger {
	return &RepoLogger{collection: collection}
}

func (l *RepoLogger) attrs(ctx context.Context, operation string, extra []slog.Attr) []slog.Attr {
	return append([]slog.Attr{
		slog.String("collection", l.collection),
		slog.String("operation", operation),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}, extra...)
}

func (l *RepoLogger) log(ctx context.Context, operation string, extra []slog.Attr) {
	if !RepoLogging {
		return
	}
	GlobalLogger.LogAttrs(ctx, slog.LevelInfo, "repository "+operation, l.attrs(ctx, operation, extra)...)
}

// LogCreate logs a write that created a record.
func (l *RepoLogger) LogCreate(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, "create", attrs)
}

// LogUpdate logs a write that replaced a record.
func (l *RepoLogger) LogUpdate(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, "update", attrs)
}

// LogDelete logs a write that removed a record.
func (l *RepoLogger) LogDelete(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, "delete", attrs)
}

// LogError logs a failed repository operation.
// Failures are logged even when RepoLogging is off.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	GlobalLogger.LogAttrs(ctx, slog.LevelError, "repository error",
		l.attrs(ctx, operation, []slog.Attr{slog.String("error", err.Error())})...)
}
