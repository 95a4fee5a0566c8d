package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/v0xg/facilityqa/internal/page"
)

// dialogTracker records native dialogs from page events; a pending dialog
// blocks every other CDP call, so DialogOpen must not touch the page.
type dialogTracker struct {
	mu      sync.Mutex
	open    bool
	message string
}

func trackDialogs(p *rod.Page) *dialogTracker {
	t := &dialogTracker{}
	wait := p.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		t.set(true, e.Message)
	}, func(e *proto.PageJavascriptDialogClosed) {
		t.set(false, "")
	})
	go wait()
	return t
}

func (t *dialogTracker) set(open bool, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = open
	t.message = message
}

func (t *dialogTracker) state() (bool, string) {
	if t == nil {
		return false, ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open, t.message
}

const dialogCheckInterval = 20 * time.Millisecond

// until runs fn in the background and returns its result, or nil as soon as
// a dialog opens. An input that raises a dialog does not complete until the
// dialog is handled.
func (t *dialogTracker) until(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	tick := time.NewTicker(dialogCheckInterval)
	defer tick.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if open, _ := t.state(); open {
				return nil
			}
		}
	}
}

// Driver implements page.Driver on a Rod page. Lookups never wait.
type Driver struct {
	page    *rod.Page
	dialogs *dialogTracker
	log     *zap.Logger
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return pageError(d.page.Context(ctx).Navigate(url))
}

func (d *Driver) Reload(ctx context.Context) error {
	return pageError(d.page.Context(ctx).Reload())
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", pageError(err)
	}
	return info.URL, nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	html, err := d.page.Context(ctx).HTML()
	return html, pageError(err)
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	res, err := d.page.Context(ctx).Eval(script, args...)
	if err != nil {
		return nil, pageError(err)
	}
	return res.Value.Val(), nil
}

func (d *Driver) FindElements(ctx context.Context, by page.By) ([]page.Element, error) {
	p := d.page.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if by.Strategy == page.StrategyXPath {
		els, err = p.ElementsX(by.Value)
	} else {
		sel, serr := cssSelector(by)
		if serr != nil {
			return nil, serr
		}
		els, err = p.Elements(sel)
	}
	if err != nil {
		return nil, pageError(err)
	}
	return wrap(els, d.dialogs), nil
}

func (d *Driver) DialogOpen(ctx context.Context) (bool, error) {
	open, _ := d.dialogs.state()
	return open, nil
}

// DialogMessage returns the text of the open dialog, if any.
func (d *Driver) DialogMessage() string {
	_, msg := d.dialogs.state()
	return msg
}

func (d *Driver) HandleDialog(ctx context.Context, accept bool) error {
	open, msg := d.dialogs.state()
	if !open {
		return page.ErrNoDialog
	}
	err := proto.PageHandleJavaScriptDialog{Accept: accept}.Call(d.page.Context(ctx))
	if err != nil {
		return fmt.Errorf("handle dialog: %w", err)
	}
	d.dialogs.set(false, "")
	d.log.Debug("dialog handled", zap.String("message", msg), zap.Bool("accept", accept))
	return nil
}

var _ page.Driver = (*Driver)(nil)

// Element implements page.Element on a Rod element.
type Element struct {
	el      *rod.Element
	dialogs *dialogTracker
}

func wrap(els rod.Elements, dialogs *dialogTracker) []page.Element {
	out := make([]page.Element, len(els))
	for i, el := range els {
		out[i] = &Element{el: el, dialogs: dialogs}
	}
	return out
}

func (e *Element) with(ctx context.Context) *rod.Element {
	return e.el.Context(ctx)
}

// Click returns once the click completes or the click opens a dialog.
func (e *Element) Click(ctx context.Context) error {
	el := e.with(ctx)
	return elementError(e.dialogs.until(ctx, func() error {
		return el.Click(proto.InputMouseButtonLeft, 1)
	}))
}

func (e *Element) Clear(ctx context.Context) error {
	el := e.with(ctx)
	if err := el.SelectAllText(); err != nil {
		return elementError(err)
	}
	return elementError(el.Input(""))
}

func (e *Element) Type(ctx context.Context, text string) error {
	return elementError(e.with(ctx).Input(text))
}

func (e *Element) Press(ctx context.Context, keys ...page.Key) error {
	rk, err := rodKeys(keys)
	if err != nil {
		return err
	}
	el := e.with(ctx)
	return elementError(e.dialogs.until(ctx, func() error {
		return el.Type(rk...)
	}))
}

func (e *Element) Hover(ctx context.Context) error {
	return elementError(e.with(ctx).Hover())
}

func (e *Element) SelectByText(ctx context.Context, text string) error {
	err := e.with(ctx).Select([]string{text}, true, rod.SelectorTypeText)
	var notFound *rod.ElementNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: option %q", page.ErrNoSuchElement, text)
	}
	return elementError(err)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	text, err := e.with(ctx).Text()
	return text, elementError(err)
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.with(ctx).Attribute(name)
	if err != nil {
		return "", false, elementError(err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) Property(ctx context.Context, name string) (any, error) {
	v, err := e.with(ctx).Property(name)
	if err != nil {
		return nil, elementError(err)
	}
	return v.Val(), nil
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	ok, err := e.with(ctx).Visible()
	return ok, elementError(err)
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	v, err := e.with(ctx).Property("disabled")
	if err != nil {
		return false, elementError(err)
	}
	return !v.Bool(), nil
}

const connectedScript = `function () { return this.isConnected; }`

func (e *Element) Stale(ctx context.Context) (bool, error) {
	res, err := e.with(ctx).Eval(connectedScript)
	if err != nil {
		if err := elementError(err); errors.Is(err, page.ErrStaleElement) {
			return true, nil
		}
		return false, err
	}
	return !res.Value.Bool(), nil
}

// Eval returns nil when the script opens a dialog before it finishes.
func (e *Element) Eval(ctx context.Context, js string, args ...any) (any, error) {
	el := e.with(ctx)
	results := make(chan *proto.RuntimeRemoteObject, 1)
	err := e.dialogs.until(ctx, func() error {
		res, err := el.Eval(js, args...)
		results <- res
		return err
	})
	if err != nil {
		return nil, elementError(err)
	}
	select {
	case res := <-results:
		return res.Value.Val(), nil
	default:
		return nil, nil
	}
}

func (e *Element) FindElements(ctx context.Context, by page.By) ([]page.Element, error) {
	el := e.with(ctx)
	var (
		els rod.Elements
		err error
	)
	if by.Strategy == page.StrategyXPath {
		els, err = el.ElementsX(by.Value)
	} else {
		sel, serr := cssSelector(by)
		if serr != nil {
			return nil, serr
		}
		els, err = el.Elements(sel)
	}
	if err != nil {
		return nil, elementError(err)
	}
	return wrap(els, e.dialogs), nil
}

var _ page.Element = (*Element)(nil)
