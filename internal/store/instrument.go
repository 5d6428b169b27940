package store

import (
	"context"
	"errors"

	"arcade/internal/observability"
)

// Instrument opens a client span and starts the latency timer for one
// backend operation. The returned func must be called with the outcome.
// ErrNotFound is a normal result and is not counted as an error.
func Instrument(ctx context.Context, m *observability.StoreMetrics, op string) (context.Context, func(error)) {
	ctx, span := observability.GetTraceLayer().TraceStoreOperation(ctx, m.Backend(), op)
	done := m.Track(op)
	return ctx, func(err error) {
		if errors.Is(err, ErrNotFound) {
			err = nil
		}
		if err != nil {
			observability.RecordErrorInContext(ctx, err)
		}
		done(err)
		span.End()
	}
}
