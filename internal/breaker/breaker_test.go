package breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadpool-game/migrator/internal/breaker"
	"github.com/deadpool-game/migrator/internal/domain"
)

var errStore = errors.New("store unavailable")

func trip(t *testing.T, b *breaker.Breaker, failures int) {
	t.Helper()
	for range failures {
		err := b.Execute(func() error { return errStore })
		require.ErrorIs(t, err, errStore)
	}
}

func TestBreaker_StaysClosedBelowThreshold(t *testing.T) {
	b := breaker.New("test", breaker.Settings{FailureThreshold: 3, Cooldown: time.Minute})
	trip(t, b, 2)
	assert.Equal(t, "closed", b.State())

	err := b.Execute(func() error { return nil })
	assert.NoError(t, err)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := breaker.New("test", breaker.Settings{FailureThreshold: 3, Cooldown: time.Minute})
	trip(t, b, 3)
	assert.Equal(t, "open", b.State())

	// Rejected without the operation running
	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	b := breaker.New("test", breaker.Settings{FailureThreshold: 3, Cooldown: time.Minute})
	trip(t, b, 2)
	require.NoError(t, b.Execute(func() error { return nil }))
	trip(t, b, 2)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_NotFoundDoesNotCountAsFailure(t *testing.T) {
	b := breaker.New("test", breaker.Settings{FailureThreshold: 2, Cooldown: time.Minute})
	for range 5 {
		err := b.Execute(func() error { return domain.ErrNotFound })
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_HalfOpenProbeClosesOnSuccess(t *testing.T) {
	b := breaker.New("test", breaker.Settings{FailureThreshold: 2, Cooldown: 30 * time.Millisecond})
	trip(t, b, 2)
	require.Equal(t, "open", b.State())

	time.Sleep(50 * time.Millisecond)

	err := b.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_HalfOpenProbeReopensOnFailure(t *testing.T) {
	b := breaker.New("test", breaker.Settings{FailureThreshold: 2, Cooldown: 30 * time.Millisecond})
	trip(t, b, 2)

	time.Sleep(50 * time.Millisecond)

	err := b.Execute(func() error { return errStore })
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, "open", b.State())

	err = b.Execute(func() error { return nil })
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
}

func TestBreaker_DefaultsApplied(t *testing.T) {
	b := breaker.New("test", breaker.Settings{})
	trip(t, b, int(breaker.DefaultFailureThreshold))
	assert.Equal(t, "open", b.State())
}
