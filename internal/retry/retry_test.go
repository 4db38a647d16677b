package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadpool-game/migrator/internal/domain"
	"github.com/deadpool-game/migrator/internal/retry"
)

// fastPolicy keeps test backoff sleeps negligible
func fastPolicy() *retry.Policy {
	return &retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestPolicy_Execute_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Execute_RetriesThrottledUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("batch write: %w", domain.ErrThrottled)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_Execute_ExhaustsAttemptBudget(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func() error {
		calls++
		return domain.ErrThrottled
	})
	assert.ErrorIs(t, err, domain.ErrThrottled)
	assert.Equal(t, 3, calls)
}

func TestPolicy_Execute_FatalErrorNotRetried(t *testing.T) {
	fatal := errors.New("conditional check failed")
	calls := 0
	err := fastPolicy().Execute(context.Background(), func() error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Execute_NotFoundIsFatal(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func() error {
		calls++
		return domain.ErrNotFound
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Execute_OnThrottleCalledPerThrottledAttempt(t *testing.T) {
	throttles := 0
	p := fastPolicy()
	p.OnThrottle = func() { throttles++ }

	err := p.Execute(context.Background(), func() error {
		return domain.ErrThrottled
	})
	assert.ErrorIs(t, err, domain.ErrThrottled)
	assert.Equal(t, 3, throttles)
}

func TestPolicy_Execute_CanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := (&retry.Policy{
		MaxAttempts: 10,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    time.Second,
	}).Execute(ctx, func() error {
		calls++
		cancel()
		return domain.ErrThrottled
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewPolicy_Defaults(t *testing.T) {
	p := retry.NewPolicy()
	assert.Equal(t, retry.DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, retry.DefaultBaseDelay, p.BaseDelay)
	assert.Equal(t, retry.DefaultMaxDelay, p.MaxDelay)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, domain.IsRetryable(domain.ErrThrottled))
	assert.True(t, domain.IsRetryable(fmt.Errorf("wrapped: %w", domain.ErrThrottled)))
	assert.False(t, domain.IsRetryable(domain.ErrNotFound))
	assert.False(t, domain.IsRetryable(nil))
}
