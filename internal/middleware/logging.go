package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"arcade/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Logger is the request logger. It adds request-scoped values to every record.
var Logger *slog.Logger

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	ProfileIDKey contextKey = "profile_id"
	TraceIDKey   contextKey = "trace_id"
)

// requestAttrs collects the request-scoped values stored in ctx.
func requestAttrs(ctx context.Context) []slog.Attr {
	var out []slog.Attr
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		out = append(out, slog.String(string(RequestIDKey), rid))
	}
	if pid, ok := ctx.Value(ProfileIDKey).(uint64); ok {
		out = append(out, slog.Uint64(string(ProfileIDKey), pid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		out = append(out, slog.String(string(TraceIDKey), tid))
	}
	return out
}

// requestHandler decorates every record with requestAttrs.
type requestHandler struct {
	slog.Handler
}

func (h requestHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(requestAttrs(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h requestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestHandler) WithGroup(name string) slog.Handler {
	return requestHandler{h.Handler.WithGroup(name)}
}

// NewLogger returns a context-aware logger writing JSON in production and
// text elsewhere.
func NewLogger(env string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(requestHandler{handler})
}

func init() {
	Logger = NewLogger(os.Getenv("APP_ENV"), os.Stdout)
}

// ContextMiddleware copies the request ID and trace ID from the fiber locals
// into the user context, where the context-aware handler picks them up in
// service and repository code. The request ID doubles as correlation ID.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ctx = context.WithValue(ctx, RequestIDKey, rid)
			ctx = observability.WithCorrelationID(ctx, rid)
		}
		if tid, ok := c.Locals("traceID").(string); ok && tid != "" {
			ctx = context.WithValue(ctx, TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger writes one record per request once the chain returns.
// Failed requests, including 5xx responses, are logged at error level.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		level, msg := slog.LevelInfo, "request processed"
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			level, msg = slog.LevelError, "request failed"
		} else if status >= fiber.StatusInternalServerError {
			level, msg = slog.LevelError, "request failed"
		}
		Logger.LogAttrs(c.UserContext(), level, msg, attrs...)
		return err
	}
}
