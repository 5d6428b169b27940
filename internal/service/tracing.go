package service

import (
	"context"

	"arcade/internal/observability"
)

// traced starts a span for a service method. The returned func records err,
// if any, and ends the span.
func traced(ctx context.Context, svc, method string) (context.Context, func(error)) {
	ctx, span := observability.GetTraceLayer().TraceServiceCall(ctx, svc, method)
	return ctx, func(err error) {
		if err != nil {
			observability.RecordErrorInContext(ctx, err)
		}
		span.End()
	}
}
