package wait

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestPollResolvesImmediately(t *testing.T) {
	var calls atomic.Int32
	err := Poll(context.Background(), Options{Timeout: time.Second, Interval: 10 * time.Millisecond}, func(context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollReevaluatesUntilTrue(t *testing.T) {
	var calls atomic.Int32
	err := Poll(context.Background(), Options{Timeout: time.Second, Interval: 5 * time.Millisecond}, func(context.Context) (bool, error) {
		return calls.Add(1) >= 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollTimeout(t *testing.T) {
	start := time.Now()
	err := Poll(context.Background(), Options{Timeout: 50 * time.Millisecond, Interval: 10 * time.Millisecond, Message: "never"}, func(context.Context) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "never")
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollIgnoredErrorsSurfaceOnTimeout(t *testing.T) {
	err := Poll(context.Background(), Options{
		Timeout:  40 * time.Millisecond,
		Interval: 10 * time.Millisecond,
		Ignore:   []error{errTransient},
	}, func(context.Context) (bool, error) {
		return false, errTransient
	})
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, errTransient)
}

func TestPollAbortsOnOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	err := Poll(context.Background(), Options{Timeout: time.Second, Interval: 10 * time.Millisecond}, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
}

func TestPollCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Poll(ctx, Options{Timeout: time.Second, Interval: 10 * time.Millisecond}, func(context.Context) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
	assert.ErrorIs(t, err, context.Canceled)
}
