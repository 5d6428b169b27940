package store

import (
	"context"
	"fmt"
	"time"

	"arcade/internal/observability"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds the optimistic retry loop of Transact.
type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry bounds used when none are configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        16,
		InitialInterval: 2 * time.Millisecond,
		MaxInterval:     100 * time.Millisecond,
	}
}

func (c RetryConfig) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		b.MaxInterval = c.MaxInterval
	}
	return b
}

// RunOptimistic calls attempt until it succeeds, fails with an error that is
// not a conflict, or the retry budget is spent. Exhausting the budget yields
// ErrConflict.
func RunOptimistic(ctx context.Context, cfg RetryConfig, backend string, attempt func() error, isConflict func(error) bool) error {
	if cfg.MaxTries == 0 {
		cfg = DefaultRetryConfig()
	}
	tries := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		err := attempt()
		switch {
		case err == nil:
			return struct{}{}, nil
		case isConflict(err):
			observability.StoreTransactionRetries.WithLabelValues(backend).Inc()
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(cfg.backOff()), backoff.WithMaxTries(cfg.MaxTries))
	if err != nil && isConflict(err) {
		return fmt.Errorf("%w after %d attempts", ErrConflict, tries)
	}
	return err
}
