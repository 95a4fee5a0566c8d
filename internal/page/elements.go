package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/facilityqa/internal/wait"
)

func (s *Session) first(ctx context.Context, by By) (Element, error) {
	els, err := s.drv.FindElements(ctx, by)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchElement, by)
	}
	return els[0], nil
}

func (s *Session) visible(ctx context.Context, by By, timeout time.Duration) (Element, error) {
	var found Element
	err := s.poll(ctx, timeout, "visibility of "+by.String(), func(ctx context.Context) (bool, error) {
		el, err := s.first(ctx, by)
		if err != nil {
			return false, err
		}
		ok, err := el.Visible(ctx)
		if err != nil || !ok {
			return false, err
		}
		found = el
		return true, nil
	})
	return found, err
}

// FindElement waits for the first element matching by to be visible.
func (s *Session) FindElement(ctx context.Context, by By) (Element, error) {
	return s.visible(ctx, by, s.timeout)
}

func (s *Session) FindElementByID(ctx context.Context, id string) (Element, error) {
	return s.FindElement(ctx, ByID(id))
}

func (s *Session) FindElementByName(ctx context.Context, name string) (Element, error) {
	return s.FindElement(ctx, ByName(name))
}

// FindElements waits for at least one element matching by to be present.
func (s *Session) FindElements(ctx context.Context, by By) ([]Element, error) {
	var found []Element
	err := s.poll(ctx, s.timeout, "presence of "+by.String(), func(ctx context.Context) (bool, error) {
		els, err := s.drv.FindElements(ctx, by)
		if err != nil || len(els) == 0 {
			return false, err
		}
		found = els
		return true, nil
	})
	return found, err
}

// FindElementWithoutWait looks by up once. Absence, or any lookup error, is
// reported as (nil, false).
func (s *Session) FindElementWithoutWait(ctx context.Context, by By) (Element, bool) {
	el, err := s.first(ctx, by)
	if err != nil {
		if !errors.Is(err, ErrNoSuchElement) {
			s.log.Debug("lookup without wait failed", zap.String("by", by.String()), zap.Error(err))
		}
		return nil, false
	}
	return el, true
}

// ElementsIfExisting looks by up once and returns whatever matches, possibly
// nothing.
func (s *Session) ElementsIfExisting(ctx context.Context, by By) []Element {
	els, err := s.drv.FindElements(ctx, by)
	if err != nil {
		s.log.Debug("lookup without wait failed", zap.String("by", by.String()), zap.Error(err))
		return nil
	}
	return els
}

// HasElement waits for by to be visible and reports false on timeout.
func (s *Session) HasElement(ctx context.Context, by By) (bool, error) {
	_, err := s.FindElement(ctx, by)
	if wait.IsTimeout(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *Session) HasElementWithoutWait(ctx context.Context, by By) bool {
	_, ok := s.FindElementWithoutWait(ctx, by)
	return ok
}

// WaitForElement waits for by to be visible.
func (s *Session) WaitForElement(ctx context.Context, by By) error {
	_, err := s.FindElement(ctx, by)
	return err
}

// WaitForElementWithTimeout waits, under an explicit bound, for nav to be
// ready and then for by to be visible.
func (s *Session) WaitForElementWithTimeout(ctx context.Context, nav Navigable, by By, timeout time.Duration) error {
	if err := s.waitForPage(ctx, nav, timeout); err != nil {
		return err
	}
	_, err := s.visible(ctx, by, timeout)
	return err
}

// WaitForElementToBeHidden waits until by matches nothing or its first match
// is not visible.
func (s *Session) WaitForElementToBeHidden(ctx context.Context, by By) error {
	return s.poll(ctx, s.timeout, "invisibility of "+by.String(), func(ctx context.Context) (bool, error) {
		el, err := s.first(ctx, by)
		if errors.Is(err, ErrNoSuchElement) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		ok, err := el.Visible(ctx)
		if errors.Is(err, ErrStaleElement) {
			return true, nil
		}
		return !ok, err
	})
}

// WaitForElementToBeEnabled waits for by to be visible and enabled, and
// returns the element.
func (s *Session) WaitForElementToBeEnabled(ctx context.Context, by By) (Element, error) {
	var found Element
	err := s.poll(ctx, s.timeout, "element to be clickable "+by.String(), func(ctx context.Context) (bool, error) {
		el, err := s.first(ctx, by)
		if err != nil {
			return false, err
		}
		if ok, err := el.Visible(ctx); err != nil || !ok {
			return false, err
		}
		if ok, err := el.Enabled(ctx); err != nil || !ok {
			return false, err
		}
		found = el
		return true, nil
	})
	return found, err
}

// WaitForStalenessOf waits until el is detached from the document.
func (s *Session) WaitForStalenessOf(ctx context.Context, el Element) error {
	return s.poll(ctx, s.timeout, "staleness of element", func(ctx context.Context) (bool, error) {
		return el.Stale(ctx)
	})
}

// WaitForTextToBePresentInElement waits for the text of by to contain text.
func (s *Session) WaitForTextToBePresentInElement(ctx context.Context, by By, text string) error {
	msg := fmt.Sprintf("text %q in %s", text, by)
	return s.poll(ctx, s.timeout, msg, func(ctx context.Context) (bool, error) {
		el, err := s.first(ctx, by)
		if err != nil {
			return false, err
		}
		got, err := el.Text(ctx)
		if err != nil {
			return false, err
		}
		return strings.Contains(got, text), nil
	})
}

// WaitForTextInPage waits for the page source to contain text.
func (s *Session) WaitForTextInPage(ctx context.Context, text string) error {
	return s.poll(ctx, s.timeout, fmt.Sprintf("text %q in page", text), func(ctx context.Context) (bool, error) {
		return s.ContainsText(ctx, text)
	})
}

// WaitForJSVariable waits for a script variable to be defined and non-null.
func (s *Session) WaitForJSVariable(ctx context.Context, name string) error {
	if !indicatorName.MatchString(name) {
		return fmt.Errorf("%q is not a script identifier", name)
	}
	script := fmt.Sprintf(`() => (typeof %[1]s !== 'undefined') && %[1]s !== null`, name)
	return s.poll(ctx, s.timeout, "script variable "+name, s.scriptTrue(script))
}

const (
	focusByIDScript  = `(id) => document.activeElement !== null && document.activeElement.id === id`
	focusByCSSScript = `(sel) => { const el = document.querySelector(sel); return el !== null && el === document.activeElement; }`
)

// WaitForFocusByID waits for the element with id to have focus.
func (s *Session) WaitForFocusByID(ctx context.Context, id string) error {
	return s.poll(ctx, s.timeout, "focus on #"+id, s.scriptTrue(focusByIDScript, id))
}

// WaitForFocusByCSS waits for the element tag[attr=value] to have focus.
func (s *Session) WaitForFocusByCSS(ctx context.Context, tag, attr, value string) error {
	sel := fmt.Sprintf(`%s[%s="%s"]`, tag, attr, cssEscape(value))
	return s.poll(ctx, s.timeout, "focus on "+sel, s.scriptTrue(focusByCSSScript, sel))
}

func (s *Session) scriptTrue(script string, args ...any) wait.Condition {
	return func(ctx context.Context) (bool, error) {
		v, err := s.drv.ExecuteScript(ctx, script, args...)
		if err != nil {
			return false, err
		}
		ok, _ := v.(bool)
		return ok, nil
	}
}

func cssEscape(v string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
}
