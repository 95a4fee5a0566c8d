// Package pagetest provides a scripted in-memory page.Driver for tests of
// page objects. It models just enough browser state for the readiness
// engine and the element helpers: current URL, document ready state, script
// variables, page source, a locator table, and a native dialog.
package pagetest

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/v0xg/facilityqa/internal/page"
)

// ScriptFunc answers a script the fake does not model. Returning handled
// false falls back to a nil result.
type ScriptFunc func(script string, args []any) (result any, handled bool, err error)

// Driver is a fake page.Driver. It is safe for concurrent use so tests can
// change browser state from timers while a wait is polling.
type Driver struct {
	mu sync.Mutex

	url        string
	readyState string
	vars       map[string]any
	source     string
	elements   map[page.By][]*Element
	focusedID  string

	dialogOpen     bool
	dialogAccepted *bool

	navigations []string
	reloads     int
	urlReads    int

	onNavigate func(d *Driver, url string)
	onScript   ScriptFunc
}

// New returns a driver showing a complete blank document.
func New() *Driver {
	return &Driver{
		url:        "about:blank",
		readyState: "complete",
		vars:       map[string]any{},
		elements:   map[page.By][]*Element{},
	}
}

// OnNavigate installs fn, run after every Navigate has updated the URL.
func (d *Driver) OnNavigate(fn func(d *Driver, url string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onNavigate = fn
}

// OnScript installs fn for scripts the fake does not model.
func (d *Driver) OnScript(fn ScriptFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onScript = fn
}

func (d *Driver) SetURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
}

func (d *Driver) SetReadyState(state string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readyState = state
}

func (d *Driver) SetVar(name string, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vars[name] = v
}

func (d *Driver) UnsetVar(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.vars, name)
}

func (d *Driver) SetSource(html string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = html
}

func (d *Driver) SetFocus(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focusedID = id
}

// Add registers els under by, after any already registered.
func (d *Driver) Add(by page.By, els ...*Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[by] = append(d.elements[by], els...)
}

// Remove drops everything registered under by.
func (d *Driver) Remove(by page.By) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.elements, by)
}

// Detach marks every registered element stale and clears the locator table,
// as a navigation replacing the document would.
func (d *Driver) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, els := range d.elements {
		for _, el := range els {
			el.SetStale()
		}
	}
	d.elements = map[page.By][]*Element{}
}

func (d *Driver) OpenDialog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialogOpen = true
	d.dialogAccepted = nil
}

// DialogResult reports whether the last dialog was handled and how.
func (d *Driver) DialogResult() (handled, accepted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialogAccepted == nil {
		return false, false
	}
	return true, *d.dialogAccepted
}

func (d *Driver) Navigations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigations...)
}

func (d *Driver) Reloads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reloads
}

// URLReads counts CurrentURL calls.
func (d *Driver) URLReads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urlReads
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	d.url = url
	d.navigations = append(d.navigations, url)
	hook := d.onNavigate
	d.mu.Unlock()

	if hook != nil {
		hook(d, url)
	}
	return nil
}

func (d *Driver) Reload(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloads++
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urlReads++
	return d.url, nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source, nil
}

var variableScript = regexp.MustCompile(`^\(\) => \(typeof ([\w.$]+) !== 'undefined'\) && (.*)$`)

const focusByIDPattern = "document.activeElement.id === id"

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	d.mu.Lock()
	hook := d.onScript
	d.mu.Unlock()

	if hook != nil {
		if v, handled, err := hook(script, args); handled {
			return v, err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if script == page.ReadyStateScript {
		return d.readyState, nil
	}
	if m := variableScript.FindStringSubmatch(script); m != nil {
		v, defined := d.vars[m[1]]
		if !defined {
			return false, nil
		}
		if m[2] == m[1]+" !== null" {
			return v != nil, nil
		}
		return truthy(v), nil
	}
	if strings.Contains(script, focusByIDPattern) && len(args) == 1 {
		return args[0] == d.focusedID, nil
	}
	return nil, nil
}

func (d *Driver) FindElements(ctx context.Context, by page.By) ([]page.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return toElements(d.elements[by]), nil
}

func (d *Driver) DialogOpen(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialogOpen, nil
}

func (d *Driver) HandleDialog(ctx context.Context, accept bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dialogOpen {
		return page.ErrNoDialog
	}
	d.dialogOpen = false
	d.dialogAccepted = &accept
	return nil
}

func toElements(els []*Element) []page.Element {
	out := make([]page.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}

// truthy follows JavaScript truthiness for the values the fake stores.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}

var _ page.Driver = (*Driver)(nil)
