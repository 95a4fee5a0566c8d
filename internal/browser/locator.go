package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/input"

	"github.com/v0xg/facilityqa/internal/page"
)

// cssSelector translates every non-XPath locator into a CSS selector.
func cssSelector(by page.By) (string, error) {
	switch by.Strategy {
	case page.StrategyID:
		return `[id="` + cssString(by.Value) + `"]`, nil
	case page.StrategyName:
		return `[name="` + cssString(by.Value) + `"]`, nil
	case page.StrategyClass:
		return `[class~="` + cssString(by.Value) + `"]`, nil
	case page.StrategyCSS, page.StrategyTag:
		if strings.TrimSpace(by.Value) == "" {
			return "", fmt.Errorf("empty %s locator", by.Strategy)
		}
		return by.Value, nil
	default:
		return "", fmt.Errorf("unsupported locator strategy %q", by.Strategy)
	}
}

func cssString(v string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
}

var keys = map[page.Key]input.Key{
	page.KeyEnter:     input.Enter,
	page.KeyTab:       input.Tab,
	page.KeyEscape:    input.Escape,
	page.KeyArrowDown: input.ArrowDown,
	page.KeyArrowUp:   input.ArrowUp,
}

func rodKeys(in []page.Key) ([]input.Key, error) {
	out := make([]input.Key, 0, len(in))
	for _, k := range in {
		rk, ok := keys[k]
		if !ok {
			return nil, fmt.Errorf("unsupported key %q", k)
		}
		out = append(out, rk)
	}
	return out, nil
}

var (
	staleMarkers = []string{
		"Could not find node with given id",
		"Could not find object with given id",
		"Cannot find object with id",
		"Node is detached from document",
	}
	contextMarkers = []string{
		"Execution context was destroyed",
		"Cannot find context with specified id",
		"Inspected target navigated or closed",
	}
)

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// pageError maps CDP failures caused by a navigation in flight onto
// page.ErrContextLost so waits retry them.
func pageError(err error) error {
	if err == nil {
		return nil
	}
	if containsAny(err.Error(), contextMarkers) {
		return fmt.Errorf("%w: %v", page.ErrContextLost, err)
	}
	return err
}

// elementError maps failures of a detached element onto page.ErrStaleElement.
// A destroyed execution context detaches every element of the document.
func elementError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if containsAny(msg, staleMarkers) || containsAny(msg, contextMarkers) {
		return fmt.Errorf("%w: %v", page.ErrStaleElement, err)
	}
	return err
}
