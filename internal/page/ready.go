package page

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/facilityqa/internal/wait"
)

// ReadyStateScript returns document.readyState.
const ReadyStateScript = `() => document.readyState`

// IndicatorScript returns true when the named script variable is defined and
// truthy.
func IndicatorScript(name string) string {
	return fmt.Sprintf(`() => (typeof %[1]s !== 'undefined') && !!%[1]s`, name)
}

// FailureReporter receives test failures; *testing.T satisfies it.
type FailureReporter interface {
	Helper()
	Fatalf(format string, args ...any)
}

var pollIgnore = []error{ErrNoSuchElement, ErrStaleElement, ErrContextLost}

func (s *Session) poll(ctx context.Context, timeout time.Duration, msg string, cond wait.Condition) error {
	if timeout <= 0 {
		timeout = s.timeout
	}
	err := wait.Poll(ctx, wait.Options{
		Timeout:  timeout,
		Interval: s.interval,
		Message:  msg,
		Ignore:   pollIgnore,
	}, cond)
	if wait.IsTimeout(err) {
		s.log.Warn("wait timed out", zap.String("for", msg), zap.Duration("timeout", timeout))
	}
	return err
}

// descriptor applies the configured indicator override to pages that
// declare a readiness indicator.
func (s *Session) descriptor(nav Navigable) Descriptor {
	d := nav.Descriptor()
	if d.ReadyIndicator != "" && s.props.ReadyIndicator != "" {
		d.ReadyIndicator = s.props.ReadyIndicator
	}
	return d
}

func (s *Session) documentComplete(ctx context.Context) (bool, error) {
	state, err := s.drv.ExecuteScript(ctx, ReadyStateScript)
	if err != nil {
		return false, err
	}
	return state == "complete", nil
}

// readyCondition is evaluated afresh on every tick; browser state changes
// underneath it.
func (s *Session) readyCondition(d Descriptor) wait.Condition {
	return func(ctx context.Context) (bool, error) {
		current, err := s.drv.CurrentURL(ctx)
		if err != nil {
			return false, err
		}
		if d.Rejected(current) {
			return true, nil
		}
		if !d.Matches(current) {
			return false, nil
		}
		complete, err := s.documentComplete(ctx)
		if err != nil || !complete {
			return false, err
		}
		if d.ReadyIndicator == "" {
			return true, nil
		}
		v, err := s.drv.ExecuteScript(ctx, IndicatorScript(d.ReadyIndicator))
		if err != nil {
			return false, err
		}
		ready, _ := v.(bool)
		return ready, nil
	}
}

// WaitForPage blocks until the browser has settled on nav: its canonical or
// alias URL with a complete document and a truthy readiness indicator, or
// its reject URL. Use Rejected to tell the two outcomes apart.
func (s *Session) WaitForPage(ctx context.Context, nav Navigable) error {
	return s.waitForPage(ctx, nav, s.timeout)
}

func (s *Session) waitForPage(ctx context.Context, nav Navigable, timeout time.Duration) error {
	d := s.descriptor(nav)
	if err := d.Validate(); err != nil {
		return err
	}
	if err := s.poll(ctx, timeout, "page "+d.Path, s.readyCondition(d)); err != nil {
		return err
	}
	s.log.Debug("page ready", zap.String("server", nav.Server().String()), zap.String("path", d.Path))
	s.step(ctx, "arrived %s", d.Path)
	return nil
}

// Rejected reports whether the browser currently shows nav's reject page.
func (s *Session) Rejected(ctx context.Context, nav Navigable) (bool, error) {
	current, err := s.drv.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	return nav.Descriptor().Rejected(current), nil
}

// WaitForPageToLoad waits for the current document to be complete and fails
// the test through t on timeout instead of returning an error.
func (s *Session) WaitForPageToLoad(ctx context.Context, t FailureReporter) {
	t.Helper()
	if err := s.WaitForDocument(ctx); err != nil {
		t.Fatalf("Timeout waiting for Page: %v", err)
	}
}

// WaitForDocument waits for the current document to be complete.
func (s *Session) WaitForDocument(ctx context.Context) error {
	return s.poll(ctx, s.timeout, "document ready state", s.documentComplete)
}
