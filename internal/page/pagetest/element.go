package pagetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/v0xg/facilityqa/internal/page"
)

// Element is a fake page.Element. New elements are visible, enabled and
// attached.
type Element struct {
	mu sync.Mutex

	text     string
	value    string
	attrs    map[string]string
	props    map[string]any
	visible  bool
	enabled  bool
	stale    bool
	focused  bool
	hovered  bool
	options  []string
	selected string
	children map[page.By][]*Element

	clicks int
	keys   []page.Key

	onClick func()
	onEnter func()
}

func NewElement() *Element {
	return &Element{
		attrs:    map[string]string{},
		props:    map[string]any{},
		visible:  true,
		enabled:  true,
		children: map[page.By][]*Element{},
	}
}

func (e *Element) WithText(text string) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
	return e
}

func (e *Element) WithValue(value string) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = value
	return e
}

func (e *Element) WithAttr(name, value string) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
	return e
}

func (e *Element) WithProp(name string, v any) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.props[name] = v
	return e
}

func (e *Element) WithOptions(options ...string) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.options = options
	for _, o := range options {
		e.children[page.ByTag("option")] = append(e.children[page.ByTag("option")], NewElement().WithText(o))
	}
	return e
}

func (e *Element) WithChild(by page.By, child *Element) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.children[by] = append(e.children[by], child)
	return e
}

// OnClick runs fn after every click, native or scripted.
func (e *Element) OnClick(fn func()) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onClick = fn
	return e
}

// OnEnter runs fn when Enter is pressed in the element.
func (e *Element) OnEnter(fn func()) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEnter = fn
	return e
}

func (e *Element) SetVisible(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = v
}

func (e *Element) SetEnabled(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = v
}

func (e *Element) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}

func (e *Element) SetStale() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stale = true
}

func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *Element) Keys() []page.Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]page.Key(nil), e.keys...)
}

func (e *Element) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

func (e *Element) Hovered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hovered
}

func (e *Element) Focused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focused
}

// Option returns the fake option child named text, or nil.
func (e *Element) Option(text string) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range e.children[page.ByTag("option")] {
		if o.text == text {
			return o
		}
	}
	return nil
}

// live locks e and fails when it is stale. Callers must unlock.
func (e *Element) live() error {
	e.mu.Lock()
	if e.stale {
		e.mu.Unlock()
		return page.ErrStaleElement
	}
	return nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	e.clicks++
	fn := e.onClick
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.value = ""
	return nil
}

func (e *Element) Type(ctx context.Context, text string) error {
	if err := e.live(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.value += text
	return nil
}

func (e *Element) Press(ctx context.Context, keys ...page.Key) error {
	if err := e.live(); err != nil {
		return err
	}
	e.keys = append(e.keys, keys...)
	fn := e.onEnter
	e.mu.Unlock()

	for _, k := range keys {
		if k == page.KeyEnter && fn != nil {
			fn()
		}
	}
	return nil
}

func (e *Element) Hover(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.hovered = true
	return nil
}

func (e *Element) SelectByText(ctx context.Context, text string) error {
	if err := e.live(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	for _, o := range e.options {
		if o == text {
			e.selected = text
			return nil
		}
	}
	return fmt.Errorf("%w: option %q", page.ErrNoSuchElement, text)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.live(); err != nil {
		return "", err
	}
	defer e.mu.Unlock()
	return e.text, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.live(); err != nil {
		return "", false, err
	}
	defer e.mu.Unlock()
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *Element) Property(ctx context.Context, name string) (any, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	if name == "value" {
		return e.value, nil
	}
	return e.props[name], nil
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	if err := e.live(); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	return e.visible, nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	if err := e.live(); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	return e.enabled, nil
}

func (e *Element) Stale(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stale, nil
}

// Eval understands the scripts the page helpers send to elements: click,
// focus and the focus check.
func (e *Element) Eval(ctx context.Context, js string, args ...any) (any, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	if strings.Contains(js, "document.activeElement === this") {
		defer e.mu.Unlock()
		return e.focused, nil
	}
	if strings.Contains(js, "this.focus()") {
		e.focused = true
	}
	click := strings.Contains(js, "this.click()")
	e.mu.Unlock()

	if click {
		return nil, e.Click(ctx)
	}
	return nil, nil
}

func (e *Element) FindElements(ctx context.Context, by page.By) ([]page.Element, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return toElements(e.children[by]), nil
}

var _ page.Element = (*Element)(nil)
