package shared

import (
	"context"
	"time"
)

// RetryPolicy describes how [Retry] repeats a failing call.
type RetryPolicy struct {
	MaxAttempts int              // total attempts including the first; values below 1 mean 1
	Backoff     time.Duration    // delay before the second attempt, doubled after each further failure
	Retryable   func(error) bool // nil retries every error
	OnRetry     func(int, error) // called before each repeated attempt with the failed attempt number
}

// DefaultRetryPolicy retries transient provider failures three times with a short exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 250 * time.Millisecond, Retryable: IsRetryable}
}

// Retry calls fn until it succeeds, returns a non-retryable error, the attempts run out, or ctx is done.
// It returns the number of attempts made together with the last error.
func Retry(ctx context.Context, p RetryPolicy, fn func(context.Context) error) (int, error) {
	attempts := max(p.MaxAttempts, 1)
	delay := p.Backoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return attempt, nil
		}
		if attempt == attempts || (p.Retryable != nil && !p.Retryable(err)) {
			return attempt, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}
	return attempts, err
}
