package anki

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy(t *testing.T) {

	t.Run("Delay", func(t *testing.T) {
		policy := DefaultRetryPolicy()
		assert.Equal(t, 100*time.Millisecond, policy.Delay(0))
		assert.Equal(t, 200*time.Millisecond, policy.Delay(1))
		assert.Equal(t, 1600*time.Millisecond, policy.Delay(4))
	})

	t.Run("Retry until success", func(t *testing.T) {
		policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond, Multiplier: 2}
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return ErrTransport
			}
			return nil
		}, IsTransport)
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Retries exhausted", func(t *testing.T) {
		policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, Multiplier: 2}
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			return ErrTransport
		}, IsTransport)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Equal(t, 3, calls)
	})

	t.Run("Non retryable", func(t *testing.T) {
		policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond, Multiplier: 2}
		calls := 0
		expected := errors.New("boom")
		err := policy.Do(context.Background(), func() error {
			calls++
			return expected
		}, IsTransport)
		assert.ErrorIs(t, err, expected)
		assert.Equal(t, 1, calls)
	})

	t.Run("Cancelled", func(t *testing.T) {
		policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour, Multiplier: 2}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := policy.Do(ctx, func() error {
			calls++
			return ErrTransport
		}, IsTransport)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Equal(t, 1, calls)
	})
}
