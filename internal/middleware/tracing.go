package middleware

import (
	"strconv"

	"arcade/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader carries the trace ID of the server span back to the client.
const TraceHeader = "X-Trace-ID"

func requestAttributes(c *fiber.Ctx) []attribute.KeyValue {
	kv := []attribute.KeyValue{
		attribute.String("http.method", c.Method()),
		attribute.String("http.path", c.Path()),
		attribute.String("http.ip", c.IP()),
		attribute.String("http.user_agent", c.Get(fiber.HeaderUserAgent)),
	}
	if rid, ok := c.Locals("requestid").(string); ok {
		kv = append(kv, attribute.String("request.id", rid))
	}
	return kv
}

// finishSpan records the outcome of the request. Profile resolution happens
// inside the chain, so profile.id is only known here.
func finishSpan(c *fiber.Ctx, span trace.Span, err error) {
	status := c.Response().StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if id := ProfileID(c); id != 0 {
		span.SetAttributes(attribute.String("profile.id", strconv.FormatUint(id, 10)))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= fiber.StatusInternalServerError:
		span.SetStatus(codes.Error, strconv.Itoa(status))
	}
}

// TracingMiddleware opens a server span per request, continuing any trace
// propagated in the request headers.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		parent := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := observability.Tracer.Start(parent, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttributes(c)...),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set(TraceHeader, traceID)
		c.SetUserContext(ctx)

		err := c.Next()
		finishSpan(c, span, err)
		return err
	}
}
