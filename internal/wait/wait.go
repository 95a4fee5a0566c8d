// Package wait polls a condition until it holds or a bound is exceeded.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	kwait "k8s.io/apimachinery/pkg/util/wait"
)

const (
	// DefaultTimeout bounds a wait when Options.Timeout is zero.
	DefaultTimeout = 30 * time.Second
	// DefaultInterval is the polling interval when Options.Interval is zero.
	DefaultInterval = 500 * time.Millisecond
)

// Condition reports whether the awaited state has been reached.
type Condition func(ctx context.Context) (bool, error)

// Options configures a single Poll call
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
	// Message describes what is awaited, used in TimeoutError.
	Message string
	// Ignore lists errors that count as "not yet" instead of aborting.
	Ignore []error
}

// TimeoutError is returned when a condition did not hold within the bound.
type TimeoutError struct {
	Message string
	Timeout time.Duration
	// LastErr is the last ignored error seen while polling, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.Message)
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Poll evaluates cond immediately and then on every interval until it returns
// true, returns a non-ignored error, or the timeout elapses.
func Poll(ctx context.Context, opts Options, cond Condition) error {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Message == "" {
		opts.Message = "condition"
	}

	var lastErr error
	err := kwait.PollUntilContextTimeout(ctx, opts.Interval, opts.Timeout, true, func(ctx context.Context) (bool, error) {
		ok, err := cond(ctx)
		if err != nil {
			if ignored(err, opts.Ignore) {
				lastErr = err
				return false, nil
			}
			return false, err
		}
		return ok, nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("waiting for %s: %w", opts.Message, ctx.Err())
	}
	if kwait.Interrupted(err) {
		return &TimeoutError{Message: opts.Message, Timeout: opts.Timeout, LastErr: lastErr}
	}
	return err
}

func ignored(err error, list []error) bool {
	for _, target := range list {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
