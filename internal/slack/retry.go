package slack

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy controls how many times an operation is attempted and how
// long to back off between attempts.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Minute,
	}
}

// backoff returns the delay preceding the given attempt (1-indexed).
// Attempt 1 has no delay; attempt n waits initial*multiplier^(n-2),
// capped at MaxBackoff.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := float64(p.InitialBackoff)
	for i := 2; i < attempt; i++ {
		delay *= p.BackoffMultiplier
	}

	if p.MaxBackoff > 0 && delay > float64(p.MaxBackoff) {
		delay = float64(p.MaxBackoff)
	}

	return time.Duration(delay)
}

// sleepFn is indirected so tests can observe computed delays without
// waiting for them.
var sleepFn = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry runs op up to policy.MaxAttempts times, sleeping the policy's
// backoff between attempts. The zero-value check means a policy with
// MaxAttempts < 1 still runs the operation once. Every failure counts
// against the attempt budget regardless of its IsRetryable() answer:
// the classified error message, not the loop, tells the operator whether
// retrying was ever going to help. The final failure is annotated with
// the attempt count.
//
// Callers must perform input validation before invoking Retry: only
// errors returned by op itself are subject to re-attempts.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := policy.backoff(attempt)
			slog.Debug("retrying after backoff",
				"attempt", attempt,
				"delay", delay,
			)
			if err := sleepFn(ctx, delay); err != nil {
				return zero, fmt.Errorf("canceled during backoff: %w", err)
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		slog.Warn("operation failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
	}

	return zero, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}
