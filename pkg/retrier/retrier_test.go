package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFail = errors.New("fail")

// failing returns fn failing the first n calls and counting all of them.
func failing(n int, calls *int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		*calls++
		if *calls <= n {
			return errFail
		}
		return nil
	}
}

func TestRetrier_Do(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		failures   int
		wantCalls  int
		wantErr    bool
	}{
		{name: "first attempt succeeds", maxRetries: 3, failures: 0, wantCalls: 1},
		{name: "succeeds on last retry", maxRetries: 2, failures: 2, wantCalls: 3},
		{name: "runs out of retries", maxRetries: 2, failures: 5, wantCalls: 3, wantErr: true},
		{name: "zero retries is a single attempt", maxRetries: 0, failures: 1, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithMaxRetries(tt.maxRetries), WithInitialInterval(time.Millisecond))
			calls := 0

			err := r.Do(context.Background(), failing(tt.failures, &calls))

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.ErrorIs(t, err, errFail)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetrier_ContextCancelledDuringWait(t *testing.T) {
	r := New(WithMaxRetries(5), WithInitialInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := r.Do(ctx, failing(10, &calls))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetrier_Backoff(t *testing.T) {
	r := New(WithInitialInterval(100*time.Millisecond), WithMultiplier(2), WithMaxInterval(time.Second))

	assert.Equal(t, time.Duration(0), r.Backoff(0))
	assert.Equal(t, 100*time.Millisecond, r.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, r.Backoff(2))
	assert.Equal(t, 800*time.Millisecond, r.Backoff(4))
	assert.Equal(t, time.Second, r.Backoff(5))
}

func TestRetrier_OnRetry(t *testing.T) {
	var attempts []int
	var r *Retrier
	r = New(
		WithMaxRetries(3),
		WithInitialInterval(time.Millisecond),
		WithJitter(0),
		WithOnRetry(func(attempt int, wait time.Duration, err error) {
			attempts = append(attempts, attempt)
			assert.ErrorIs(t, err, errFail)
			assert.Equal(t, r.Backoff(attempt), wait)
		}),
	)
	calls := 0

	require.NoError(t, r.Do(context.Background(), failing(2, &calls)))
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetrier_RetryIf(t *testing.T) {
	retryable := errors.New("retryable")
	permanent := errors.New("permanent")
	onlyRetryable := WithRetryIf(func(err error) bool { return errors.Is(err, retryable) })

	t.Run("permanent error is not retried", func(t *testing.T) {
		r := New(WithMaxRetries(3), WithInitialInterval(time.Millisecond), onlyRetryable)
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return permanent
		})
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retryable error is retried", func(t *testing.T) {
		r := New(WithMaxRetries(2), WithInitialInterval(time.Millisecond), onlyRetryable)
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return retryable
		})
		assert.ErrorIs(t, err, retryable)
		assert.Equal(t, 3, attempts)
	})
}

func TestDoWithData(t *testing.T) {
	r := New(WithMaxRetries(1), WithInitialInterval(time.Millisecond))
	calls := 0

	val, err := DoWithData(r, context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errFail
		}
		return "rates", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "rates", val)

	_, err = DoWithData(New(WithMaxRetries(0)), context.Background(), func(ctx context.Context) (int, error) {
		return 0, errFail
	})
	assert.ErrorIs(t, err, errFail)
}
