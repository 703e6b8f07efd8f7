package anki

import (
	"context"
	"time"
)

// RetryPolicy governs how transient failures are retried.
// Delays double after each attempt: 100ms, 200ms, 400ms, 800ms, 1.6s.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
}

// DefaultRetryPolicy returns the policy used to reach AnkiConnect.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		Multiplier: 2,
	}
}

// NoRetry never retries.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// Delay returns how long to wait before the given retry (starting at 0).
func (p RetryPolicy) Delay(retry int) time.Duration {
	delay := float64(p.BaseDelay)
	for range retry {
		delay *= p.Multiplier
	}
	return time.Duration(delay)
}

// Do calls fn until it succeeds, returns a non-retryable error, or retries are exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func() error, retryable func(error) bool) error {
	for retry := 0; ; retry++ {
		err := fn()
		if err == nil || !retryable(err) || retry >= p.MaxRetries {
			return err
		}

		timer := time.NewTimer(p.Delay(retry))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
