// Package page is the page-object layer: a Session wraps one browser Driver
// and offers bounded waits, element helpers and form helpers; page objects
// implement Navigable and hand the session to each other on navigation.
package page

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

var (
	// ErrSamePageTransition is returned by Arrive when the next page object
	// has the same type as the current one. Use ArriveAfterStale instead.
	ErrSamePageTransition = errors.New("same page transition requires ArriveAfterStale")
	// ErrServerNotConfigured is returned when navigating to a server group
	// without a base URL.
	ErrServerNotConfigured = errors.New("server url not configured")
)

// Server identifies one of the three server groups of the registry.
type Server int

const (
	ServerEMR Server = iota
	ServerLab
	ServerFacility
)

func (s Server) String() string {
	switch s {
	case ServerEMR:
		return "emr"
	case ServerLab:
		return "lab"
	case ServerFacility:
		return "facility"
	default:
		return fmt.Sprintf("server(%d)", int(s))
	}
}

// ParseServer maps "emr", "lab" or "facility" to a Server.
func ParseServer(name string) (Server, error) {
	switch strings.ToLower(name) {
	case "emr":
		return ServerEMR, nil
	case "lab":
		return ServerLab, nil
	case "facility":
		return ServerFacility, nil
	default:
		return 0, fmt.Errorf("unknown server %q (supported: emr, lab, facility)", name)
	}
}

var indicatorName = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)

// Descriptor is the immutable metadata of a page type.
type Descriptor struct {
	// Path is the canonical path, relative to the server base URL.
	Path string
	// AliasPath is also accepted as arrival.
	AliasPath string
	// RejectPath settles a readiness wait immediately when reached.
	RejectPath string
	// ReadyIndicator names a script variable that must be truthy.
	ReadyIndicator string
}

// Validate checks the descriptor can drive a readiness wait.
func (d Descriptor) Validate() error {
	if d.Path == "" {
		return errors.New("page descriptor has no path")
	}
	if d.ReadyIndicator != "" && !indicatorName.MatchString(d.ReadyIndicator) {
		return fmt.Errorf("ready indicator %q is not a script identifier", d.ReadyIndicator)
	}
	return nil
}

// Matches reports whether currentURL is the canonical or alias page.
func (d Descriptor) Matches(currentURL string) bool {
	if strings.Contains(currentURL, d.Path) {
		return true
	}
	return d.AliasPath != "" && strings.Contains(currentURL, d.AliasPath)
}

// Rejected reports whether currentURL is the reject page.
func (d Descriptor) Rejected(currentURL string) bool {
	return d.RejectPath != "" && strings.Contains(currentURL, d.RejectPath)
}

// Navigable is implemented by every page object.
type Navigable interface {
	Descriptor() Descriptor
	Server() Server
}

// Goer is implemented by page objects with their own way of being opened.
type Goer interface {
	Go(ctx context.Context) error
}

// Go opens nav and waits until it is ready. Page objects implementing Goer
// are opened through their own Go.
func Go(ctx context.Context, s *Session, nav Navigable) error {
	if g, ok := nav.(Goer); ok {
		return g.Go(ctx)
	}
	return s.Open(ctx, nav)
}

// Arrive waits for next to be ready and returns it. It is the return path of
// every navigation action; from is the page the action was invoked on.
func Arrive[P Navigable](ctx context.Context, s *Session, from Navigable, next P) (P, error) {
	var zero P
	if from != nil && reflect.TypeOf(from) == reflect.TypeOf(next) {
		return zero, fmt.Errorf("%w: %T", ErrSamePageTransition, next)
	}
	if err := s.WaitForPage(ctx, next); err != nil {
		return zero, err
	}
	return next, nil
}

// ArriveAfterStale is Arrive for transitions that reload the same page: it
// first waits for stale, an element of the old document, to detach.
func ArriveAfterStale[P Navigable](ctx context.Context, s *Session, stale Element, next P) (P, error) {
	var zero P
	if err := s.WaitForStalenessOf(ctx, stale); err != nil {
		return zero, err
	}
	if err := s.WaitForPage(ctx, next); err != nil {
		return zero, err
	}
	return next, nil
}
