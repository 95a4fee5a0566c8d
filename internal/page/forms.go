package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ValidationErrorClasses are the CSS classes the registry uses to style
// validation errors, in reporting order.
var ValidationErrorClasses = []string{"field-error", "error"}

// GetText returns the text of the visible element by.
func (s *Session) GetText(ctx context.Context, by By) (string, error) {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

// SetText clears by, types text and presses Enter.
func (s *Session) SetText(ctx context.Context, by By, text string) error {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return err
	}
	return s.setText(ctx, el, by.String(), text, true)
}

// SetTextByID is SetText on the element with id.
func (s *Session) SetTextByID(ctx context.Context, id, text string) error {
	return s.SetText(ctx, ByID(id), text)
}

// SetTextNoEnter clears by and types text.
func (s *Session) SetTextNoEnter(ctx context.Context, by By, text string) error {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return err
	}
	return s.setText(ctx, el, by.String(), text, false)
}

// SetTextInsideSpan sets the text of the input nested in the span with id.
func (s *Session) SetTextInsideSpan(ctx context.Context, spanID, text string) error {
	span, err := s.FindElementByID(ctx, spanID)
	if err != nil {
		return err
	}
	inputs, err := span.FindElements(ctx, ByTag("input"))
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%w: input inside #%s", ErrNoSuchElement, spanID)
	}
	return s.setText(ctx, inputs[0], "input in #"+spanID, text, true)
}

func (s *Session) setText(ctx context.Context, el Element, name, text string, enter bool) error {
	if err := el.Clear(ctx); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	if err := el.Type(ctx, text); err != nil {
		return fmt.Errorf("type into %s: %w", name, err)
	}
	if enter {
		if err := el.Press(ctx, KeyEnter); err != nil {
			return fmt.Errorf("press enter in %s: %w", name, err)
		}
	}
	s.step(ctx, "type %s", name)
	return nil
}

// ClearText empties the field by.
func (s *Session) ClearText(ctx context.Context, by By) error {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return err
	}
	return el.Clear(ctx)
}

// ClickOn clicks the visible element by.
func (s *Session) ClickOn(ctx context.Context, by By) error {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("click %s: %w", by, err)
	}
	s.step(ctx, "click %s", by)
	return nil
}

// ClickOnLast clicks the last element matching by.
func (s *Session) ClickOnLast(ctx context.Context, by By) error {
	els, err := s.FindElements(ctx, by)
	if err != nil {
		return err
	}
	if err := els[len(els)-1].Click(ctx); err != nil {
		return fmt.Errorf("click last %s: %w", by, err)
	}
	s.step(ctx, "click last %s", by)
	return nil
}

const jsClick = `function () { this.click(); }`

// ClickByJS clicks by through script, for elements native clicks miss.
func (s *Session) ClickByJS(ctx context.Context, by By) error {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return err
	}
	if _, err := el.Eval(ctx, jsClick); err != nil {
		return fmt.Errorf("script click %s: %w", by, err)
	}
	s.step(ctx, "click %s", by)
	return nil
}

// ByFromHref locates the link with exactly href.
func ByFromHref(href string) By {
	return ByXPath(fmt.Sprintf(`//a[@href=%s]`, xpathLiteral(href)))
}

func (s *Session) ClickOnLinkFromHref(ctx context.Context, href string) error {
	return s.ClickOn(ctx, ByFromHref(href))
}

// xpathLiteral quotes v for XPath 1.0, which has no escape sequences.
func xpathLiteral(v string) string {
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	parts := strings.Split(v, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// SelectFrom picks the option of the dropdown by with the visible text value.
func (s *Session) SelectFrom(ctx context.Context, by By, value string) error {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return err
	}
	if err := el.SelectByText(ctx, value); err != nil {
		return fmt.Errorf("select %q in %s: %w", value, by, err)
	}
	s.step(ctx, "select %q in %s", value, by)
	return nil
}

func (s *Session) dropDownOptions(ctx context.Context, by By) ([]Element, error) {
	if err := s.ClickOn(ctx, by); err != nil {
		return nil, err
	}
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return nil, err
	}
	return el.FindElements(ctx, ByTag("option"))
}

// SelectOptionFromDropDown opens the dropdown by and clicks its second
// option, the first one being the placeholder.
func (s *Session) SelectOptionFromDropDown(ctx context.Context, by By) error {
	options, err := s.dropDownOptions(ctx, by)
	if err != nil {
		return err
	}
	if len(options) < 2 {
		return nil
	}
	return options[1].Click(ctx)
}

// DropDownHasOptions opens the dropdown by and reports whether it has options.
func (s *Session) DropDownHasOptions(ctx context.Context, by By) (bool, error) {
	options, err := s.dropDownOptions(ctx, by)
	if err != nil {
		return false, err
	}
	return len(options) > 0, nil
}

const (
	jsClickAndFocus = `function () { this.click(); this.focus(); }`
	jsHasFocus      = `function () { return document.activeElement === this; }`
)

// SelectOptionByJS forces a script-driven select widget open on by and picks
// its first option with the keyboard.
func (s *Session) SelectOptionByJS(ctx context.Context, by By) error {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return err
	}
	if _, err := el.Eval(ctx, jsClickAndFocus); err != nil {
		return fmt.Errorf("script click %s: %w", by, err)
	}
	err = s.poll(ctx, s.timeout, "focus on "+by.String(), func(ctx context.Context) (bool, error) {
		v, err := el.Eval(ctx, jsHasFocus)
		ok, _ := v.(bool)
		return ok, err
	})
	if err != nil {
		return err
	}
	if err := el.Press(ctx, KeyArrowDown, KeyEnter, KeyEnter); err != nil {
		return fmt.Errorf("choose option in %s: %w", by, err)
	}
	s.step(ctx, "select first option in %s", by)
	return nil
}

// SelectOptionByAction moves to and clicks the widget by, then clicks value.
func (s *Session) SelectOptionByAction(ctx context.Context, by, value By) error {
	if err := s.HoverOn(ctx, by); err != nil {
		return err
	}
	if err := s.ClickOn(ctx, by); err != nil {
		return err
	}
	return s.ClickOn(ctx, value)
}

// HoverOn moves the mouse over by.
func (s *Session) HoverOn(ctx context.Context, by By) error {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return err
	}
	return el.Hover(ctx)
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (s *Session) attribute(ctx context.Context, by By, name string) (string, error) {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return "", err
	}
	v, _, err := el.Attribute(ctx, name)
	return v, err
}

func (s *Session) GetClass(ctx context.Context, by By) (string, error) {
	return s.attribute(ctx, by, "class")
}

func (s *Session) GetStyle(ctx context.Context, by By) (string, error) {
	return s.attribute(ctx, by, "style")
}

// GetValue returns the current value of the field by.
func (s *Session) GetValue(ctx context.Context, by By) (string, error) {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return "", err
	}
	return stringProperty(ctx, el, "value")
}

// GetValueWithoutWait returns the value of by, or "" when it is absent.
func (s *Session) GetValueWithoutWait(ctx context.Context, by By) string {
	el, ok := s.FindElementWithoutWait(ctx, by)
	if !ok {
		return ""
	}
	v, err := stringProperty(ctx, el, "value")
	if err != nil {
		return ""
	}
	return v
}

func stringProperty(ctx context.Context, el Element, name string) (string, error) {
	v, err := el.Property(ctx, name)
	if err != nil || v == nil {
		return "", err
	}
	if str, ok := v.(string); ok {
		return str, nil
	}
	return fmt.Sprint(v), nil
}

func (s *Session) boolProperty(ctx context.Context, by By, name string) (bool, error) {
	el, err := s.FindElement(ctx, by)
	if err != nil {
		return false, err
	}
	v, err := el.Property(ctx, name)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (s *Session) IsDisabled(ctx context.Context, by By) (bool, error) {
	return s.boolProperty(ctx, by, "disabled")
}

func (s *Session) IsChecked(ctx context.Context, by By) (bool, error) {
	return s.boolProperty(ctx, by, "checked")
}

// ContainsText reports whether the page source contains text.
func (s *Session) ContainsText(ctx context.Context, text string) (bool, error) {
	src, err := s.drv.PageSource(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(src, text), nil
}

func (s *Session) document(ctx context.Context) (*goquery.Document, error) {
	src, err := s.drv.PageSource(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse page source: %w", err)
	}
	return doc, nil
}

// ValidationErrors returns the non-blank texts of the elements styled with
// ValidationErrorClasses.
func (s *Session) ValidationErrors(ctx context.Context) ([]string, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, err
	}
	var errs []string
	for _, class := range ValidationErrorClasses {
		doc.Find("." + class).Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				errs = append(errs, text)
			}
		})
	}
	return errs, nil
}

const (
	queryAttributeScript = `(sel, attr) => { const el = document.querySelector(sel); return el === null ? null : String(el[attr]); }`
	setAttributeScript   = `(sel, attr, value) => { document.querySelector(sel)[attr] = value; }`
)

// QueryJSForAttribute reads property attribute of the element matching the
// CSS selector through script.
func (s *Session) QueryJSForAttribute(ctx context.Context, css, attribute string) (string, error) {
	v, err := s.drv.ExecuteScript(ctx, queryAttributeScript, css, attribute)
	if err != nil {
		return "", err
	}
	str, _ := v.(string)
	return str, nil
}

// SetAttributeWithJS assigns property attribute of the element matching css.
func (s *Session) SetAttributeWithJS(ctx context.Context, css, attribute, value string) error {
	_, err := s.drv.ExecuteScript(ctx, setAttributeScript, css, attribute, value)
	return err
}
