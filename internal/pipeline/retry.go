package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy returns the exact exponential-backoff parameters spec §5
// requires for transient LLM/HTTP errors: multiplier 1s, min 4s, max 10s,
// 3 attempts.
func RetryPolicy() backoff.ExponentialBackOff {
	return backoff.ExponentialBackOff{
		InitialInterval:     4 * time.Second,
		Multiplier:          1.0,
		MaxInterval:         10 * time.Second,
		RandomizationFactor: 0,
	}
}

// WithRetry runs fn up to 3 times total (1 attempt + 2 retries) using
// RetryPolicy's backoff schedule. The final error, if any, is returned
// unwrapped so callers can still inspect its type.
func WithRetry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	policy := RetryPolicy()
	return backoff.Retry(ctx, func() (T, error) {
		return fn(ctx)
	}, backoff.WithBackOff(&policy), backoff.WithMaxTries(3))
}
