package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSuchElement is returned when a locator matches nothing.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement is returned by element operations once the element is
	// no longer attached to the current document.
	ErrStaleElement = errors.New("stale element reference")
	// ErrContextLost is returned by script execution while the page's
	// script context is being replaced by a navigation.
	ErrContextLost = errors.New("script context lost")
	// ErrNoDialog is returned when handling a dialog while none is open.
	ErrNoDialog = errors.New("no dialog open")
)

// Driver is the browser boundary used by a Session. Lookups never wait:
// every wait is driven by the Session with an explicit bound.
//
// Scripts are JavaScript function expressions, called with args.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)
	// FindElements returns the elements currently matching by, possibly none.
	FindElements(ctx context.Context, by By) ([]Element, error)
	DialogOpen(ctx context.Context) (bool, error)
	// HandleDialog accepts or dismisses the open dialog, or returns ErrNoDialog.
	HandleDialog(ctx context.Context, accept bool) error
}

// Element is a located node of the current document.
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, keys ...Key) error
	Hover(ctx context.Context) error
	SelectByText(ctx context.Context, text string) error

	Text(ctx context.Context) (string, error)
	// Attribute returns the DOM attribute and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Property(ctx context.Context, name string) (any, error)
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Stale(ctx context.Context) (bool, error)

	// Eval runs a `function () {}` expression with this bound to the element.
	Eval(ctx context.Context, js string, args ...any) (any, error)
	FindElements(ctx context.Context, by By) ([]Element, error)
}

// Key is a named keyboard key.
type Key string

const (
	KeyEnter     Key = "Enter"
	KeyTab       Key = "Tab"
	KeyEscape    Key = "Escape"
	KeyArrowDown Key = "ArrowDown"
	KeyArrowUp   Key = "ArrowUp"
)

// Strategy names how a locator value is interpreted.
type Strategy string

const (
	StrategyID    Strategy = "id"
	StrategyName  Strategy = "name"
	StrategyCSS   Strategy = "css"
	StrategyXPath Strategy = "xpath"
	StrategyTag   Strategy = "tag"
	StrategyClass Strategy = "class"
)

// By is an element locator, passed through to the Driver.
type By struct {
	Strategy Strategy
	Value    string
}

func ByID(id string) By        { return By{StrategyID, id} }
func ByName(name string) By    { return By{StrategyName, name} }
func ByCSS(selector string) By { return By{StrategyCSS, selector} }
func ByXPath(xpath string) By  { return By{StrategyXPath, xpath} }
func ByTag(tag string) By      { return By{StrategyTag, tag} }
func ByClass(class string) By  { return By{StrategyClass, class} }

func (b By) String() string {
	return string(b.Strategy) + "=" + b.Value
}

// ParseBy reads the "strategy=value" form produced by String. A value
// without a known strategy prefix is a CSS selector.
func ParseBy(s string) (By, error) {
	if strings.TrimSpace(s) == "" {
		return By{}, errors.New("empty locator")
	}
	if strategy, value, ok := strings.Cut(s, "="); ok {
		switch st := Strategy(strategy); st {
		case StrategyID, StrategyName, StrategyCSS, StrategyXPath, StrategyTag, StrategyClass:
			if value == "" {
				return By{}, fmt.Errorf("locator %q has no value", s)
			}
			return By{st, value}, nil
		}
	}
	return ByCSS(s), nil
}
