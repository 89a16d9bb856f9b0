package utils

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewLoggerTo(io.Discard)}

	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryGivesUp(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewLoggerTo(io.Discard)}
	boom := errors.New("boom")

	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryPermanentIsNotRetried(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, Logger: NewLoggerTo(io.Discard)}
	notFound := errors.New("404")

	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return Permanent(notFound)
	})

	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, 1, calls)
}

func TestThrottleStaysInRange(t *testing.T) {
	th := NewThrottle(20*time.Millisecond, 40*time.Millisecond)
	for i := 0; i < 200; i++ {
		d := th.Next()
		assert.GreaterOrEqual(t, d, 20*time.Millisecond)
		assert.LessOrEqual(t, d, 40*time.Millisecond)
	}
}

func TestThrottleHonoursCancel(t *testing.T) {
	th := NewThrottle(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := th.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHostLimiterSpacesSameHost(t *testing.T) {
	h := NewHostLimiter(30*time.Millisecond, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Wait(ctx, "https://i.ebayimg.com/a.jpg"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestHostLimiterSeparatesHosts(t *testing.T) {
	h := NewHostLimiter(time.Hour, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, h.Wait(ctx, "https://www.ebay.com/itm/1"))
	require.NoError(t, h.Wait(ctx, "https://i.ebayimg.com/1.jpg"))
}
