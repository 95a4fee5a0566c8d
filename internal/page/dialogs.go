package page

import (
	"context"

	"github.com/v0xg/facilityqa/internal/wait"
)

func (s *Session) waitForDialog(ctx context.Context) error {
	return s.poll(ctx, s.timeout, "dialog", func(ctx context.Context) (bool, error) {
		return s.drv.DialogOpen(ctx)
	})
}

// AcceptAlert waits for a native dialog and accepts it.
func (s *Session) AcceptAlert(ctx context.Context) error {
	if err := s.waitForDialog(ctx); err != nil {
		return err
	}
	if err := s.drv.HandleDialog(ctx, true); err != nil {
		return err
	}
	s.step(ctx, "accept dialog")
	return nil
}

// DismissAlert waits for a native dialog and dismisses it.
func (s *Session) DismissAlert(ctx context.Context) error {
	if err := s.waitForDialog(ctx); err != nil {
		return err
	}
	if err := s.drv.HandleDialog(ctx, false); err != nil {
		return err
	}
	s.step(ctx, "dismiss dialog")
	return nil
}

// AlertPresent reports whether a dialog opens within DialogProbe. It
// returns as soon as one is seen.
func (s *Session) AlertPresent(ctx context.Context) (bool, error) {
	err := wait.Poll(ctx, wait.Options{
		Timeout:  s.dialogProbe,
		Interval: s.interval,
		Message:  "dialog",
	}, func(ctx context.Context) (bool, error) {
		return s.drv.DialogOpen(ctx)
	})
	if wait.IsTimeout(err) {
		return false, nil
	}
	return err == nil, err
}

// PromptPresent is AlertPresent; prompts are dialogs too.
func (s *Session) PromptPresent(ctx context.Context) (bool, error) {
	return s.AlertPresent(ctx)
}
