package scenario

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/facilityqa/internal/page"
)

// StepResult records one executed step.
type StepResult struct {
	Index    int
	Step     Step
	Duration time.Duration
	Err      error
}

// Result is the outcome of a run. Steps after a failure are not run.
type Result struct {
	Name  string
	Steps []StepResult
}

// Failed returns the failing step, or nil when every step passed.
func (r *Result) Failed() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Err != nil {
			return &r.Steps[i]
		}
	}
	return nil
}

// Run executes sc step by step, stopping at the first failure. The returned
// error is the failing step's, wrapped with its position.
func Run(ctx context.Context, s *page.Session, sc *Scenario) (*Result, error) {
	log := s.Logger().With(zap.String("scenario", sc.Name))
	server, err := page.ParseServer(sc.Server)
	if err != nil {
		return nil, err
	}

	res := &Result{Name: sc.Name}
	for i, st := range sc.Steps {
		start := time.Now()
		err := runStep(ctx, s, server, st)
		res.Steps = append(res.Steps, StepResult{Index: i, Step: st, Duration: time.Since(start), Err: err})
		if err != nil {
			log.Warn("step failed", zap.Int("step", i+1), zap.Stringer("action", st), zap.Error(err))
			return res, fmt.Errorf("step %d (%s): %w", i+1, st, err)
		}
		log.Debug("step done", zap.Int("step", i+1), zap.Stringer("action", st))
	}
	return res, nil
}

func runStep(ctx context.Context, s *page.Session, server page.Server, st Step) error {
	var by page.By
	if st.Target != "" {
		var err error
		if by, err = page.ParseBy(st.Target); err != nil {
			return err
		}
	}

	switch st.Action {
	case ActionGo:
		if st.Server != "" {
			var err error
			if server, err = page.ParseServer(st.Server); err != nil {
				return err
			}
		}
		if err := s.GoTo(ctx, server, st.Path); err != nil {
			return err
		}
		return s.WaitForDocument(ctx)
	case ActionClick:
		return s.ClickOn(ctx, by)
	case ActionType:
		if st.Enter {
			return s.SetText(ctx, by, st.Text)
		}
		return s.SetTextNoEnter(ctx, by, st.Text)
	case ActionSelect:
		return s.SelectFrom(ctx, by, st.Text)
	case ActionHover:
		return s.HoverOn(ctx, by)
	case ActionWait:
		switch {
		case st.Target != "":
			return s.WaitForElement(ctx, by)
		case st.Var != "":
			return s.WaitForJSVariable(ctx, st.Var)
		default:
			return pause(ctx, st.Duration)
		}
	case ActionRefresh:
		return s.RefreshPage(ctx)
	case ActionAcceptAlert:
		return s.AcceptAlert(ctx)
	case ActionDismissAlert:
		return s.DismissAlert(ctx)
	case ActionExpectText:
		if st.Target != "" {
			return s.WaitForTextToBePresentInElement(ctx, by, st.Text)
		}
		return s.WaitForTextInPage(ctx, st.Text)
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
