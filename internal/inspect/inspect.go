// Package inspect analyzes the source of the current page and suggests
// locators for its interactive elements, as a starting point for new page
// objects.
package inspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/v0xg/facilityqa/internal/page"
)

// Report represents the analyzed structure of a page
type Report struct {
	URL      string    `json:"url" yaml:"url"`
	Title    string    `json:"title" yaml:"title"`
	Elements []Element `json:"elements" yaml:"elements"`
	Links    []Link    `json:"links,omitempty" yaml:"links,omitempty"`
}

// Element is an interactive element with a suggested locator.
type Element struct {
	Locator     string `json:"locator" yaml:"locator"`
	Kind        string `json:"kind" yaml:"kind"` // button, text, password, select, checkbox, radio, textarea
	Text        string `json:"text,omitempty" yaml:"text,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Unique      bool   `json:"unique" yaml:"unique"`

	by page.By
}

// By returns the suggested locator.
func (e Element) By() page.By { return e.by }

// Link is a navigation target reachable with ClickOnLinkFromHref.
type Link struct {
	Href string `json:"href" yaml:"href"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

const maxText = 50

// Page reports on the page the session is currently on.
func Page(ctx context.Context, s *page.Session) (*Report, error) {
	url, err := s.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	src, err := s.Driver().PageSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page source: %w", err)
	}
	return Parse(url, src)
}

// Parse reports on an HTML document.
func Parse(url, html string) (*Report, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	r := &Report{
		URL:   url,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	seen := make(map[string]bool)
	add := func(sel *goquery.Selection, kind, text string) {
		if hidden(sel) {
			return
		}
		by := locator(sel)
		if seen[by.String()] {
			return
		}
		seen[by.String()] = true
		placeholder, _ := sel.Attr("placeholder")
		r.Elements = append(r.Elements, Element{
			Locator:     by.String(),
			Kind:        kind,
			Text:        clip(text),
			Placeholder: placeholder,
			Unique:      unique(doc, by),
			by:          by,
		})
	}

	doc.Find(`button, [role="button"], input[type="submit"], input[type="button"]`).Each(func(_ int, sel *goquery.Selection) {
		text := sel.Text()
		if v, ok := sel.Attr("value"); ok && strings.TrimSpace(text) == "" {
			text = v
		}
		add(sel, "button", text)
	})
	doc.Find(`input:not([type="hidden"]):not([type="submit"]):not([type="button"]), textarea`).Each(func(_ int, sel *goquery.Selection) {
		kind := strings.ToLower(sel.AttrOr("type", "text"))
		if goquery.NodeName(sel) == "textarea" {
			kind = "textarea"
		}
		add(sel, kind, "")
	})
	doc.Find("select").Each(func(_ int, sel *goquery.Selection) {
		add(sel, "select", sel.Find("option[selected]").First().Text())
	})

	hrefs := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		if hidden(sel) || hrefs[href] {
			return
		}
		hrefs[href] = true
		r.Links = append(r.Links, Link{Href: href, Text: clip(sel.Text())})
	})
	return r, nil
}

// locator prefers id, then name, then a unique class, then a structural
// CSS path.
func locator(sel *goquery.Selection) page.By {
	if id, ok := sel.Attr("id"); ok && id != "" {
		return page.ByID(id)
	}
	if name, ok := sel.Attr("name"); ok && name != "" {
		return page.ByName(name)
	}
	return page.ByCSS(cssPath(sel))
}

func cssPath(sel *goquery.Selection) string {
	tag := goquery.NodeName(sel)
	if id, ok := sel.Attr("id"); ok && id != "" {
		return fmt.Sprintf(`%s[id="%s"]`, tag, id)
	}
	parent := sel.Parent()
	if parent.Length() == 0 || goquery.NodeName(parent) == "html" {
		return tag
	}
	index := sel.PrevAll().Length() + 1
	return fmt.Sprintf("%s > %s:nth-child(%d)", cssPath(parent), tag, index)
}

func unique(doc *goquery.Document, by page.By) bool {
	var css string
	switch by.Strategy {
	case page.StrategyID:
		css = fmt.Sprintf(`[id="%s"]`, by.Value)
	case page.StrategyName:
		css = fmt.Sprintf(`[name="%s"]`, by.Value)
	default:
		css = by.Value
	}
	return doc.Find(css).Length() == 1
}

// hidden reports elements the browser would not render. Stylesheets are not
// evaluated, so only inline markers count.
func hidden(sel *goquery.Selection) bool {
	for n := sel; n.Length() > 0; n = n.Parent() {
		if _, ok := n.Attr("hidden"); ok {
			return true
		}
		style := strings.ReplaceAll(strings.ToLower(n.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return true
		}
	}
	return false
}

func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxText {
		return string(r[:maxText])
	}
	return s
}
