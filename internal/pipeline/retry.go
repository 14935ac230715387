package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

const MaxRetries = 3

// IsRetryable checks if an artifact store error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
	if base > 10*time.Second {
		base = 10 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// withRetry runs fn until it succeeds, fails permanently, or MaxRetries
// attempts were made.
func withRetry(ctx context.Context, fn func() error, onRetry func(attempt int, err error)) error {
	var err error
	for attempt := range MaxRetries {
		err = fn()
		if !IsRetryable(err) || attempt == MaxRetries-1 {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
