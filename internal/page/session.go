package page

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/facilityqa/internal/config"
	"github.com/v0xg/facilityqa/internal/wait"
)

// StepHook is called after every completed interaction with a short step
// description, e.g. to capture a screenshot.
type StepHook func(ctx context.Context, step string)

// Options configures a Session
type Options struct {
	Logger   *zap.Logger
	StepHook StepHook
}

// Session wraps one live driver shared by all page objects of a test.
type Session struct {
	drv       Driver
	props     config.Properties
	endpoints config.Endpoints

	timeout     time.Duration
	interval    time.Duration
	dialogProbe time.Duration

	log  *zap.Logger
	hook StepHook
}

// NewSession validates the endpoints in props before anything touches the
// browser; a malformed base URL fails here.
func NewSession(drv Driver, props config.Properties, opts Options) (*Session, error) {
	endpoints, err := props.Endpoints()
	if err != nil {
		return nil, err
	}

	s := &Session{
		drv:         drv,
		props:       props,
		endpoints:   endpoints,
		timeout:     props.Timeout,
		interval:    props.PollInterval,
		dialogProbe: props.DialogProbe,
		log:         opts.Logger,
		hook:        opts.StepHook,
	}
	if s.timeout <= 0 {
		s.timeout = wait.DefaultTimeout
	}
	if s.interval <= 0 {
		s.interval = wait.DefaultInterval
	}
	if s.dialogProbe <= 0 {
		s.dialogProbe = time.Second
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s, nil
}

func (s *Session) Driver() Driver                { return s.drv }
func (s *Session) Properties() config.Properties { return s.props }
func (s *Session) Endpoints() config.Endpoints   { return s.endpoints }
func (s *Session) Timeout() time.Duration        { return s.timeout }
func (s *Session) Logger() *zap.Logger           { return s.log }

func (s *Session) baseURL(server Server) string {
	switch server {
	case ServerEMR:
		return s.endpoints.Emr
	case ServerLab:
		return s.endpoints.Lab
	case ServerFacility:
		return s.endpoints.Facility
	}
	return ""
}

func withSlash(path string) string {
	if len(path) == 0 || path[0] != '/' {
		return "/" + path
	}
	return path
}

// ContextPageURL returns path relative to the host, under the EMR context path.
func (s *Session) ContextPageURL(path string) string {
	return s.endpoints.ContextPath + withSlash(path)
}

// AbsoluteURL returns the absolute URL of path on server.
func (s *Session) AbsoluteURL(server Server, path string) (string, error) {
	base := s.baseURL(server)
	if base == "" {
		return "", fmt.Errorf("%w: %s", ErrServerNotConfigured, server)
	}
	return base + withSlash(path), nil
}

// AbsolutePageURL returns the absolute URL of nav's canonical path.
func (s *Session) AbsolutePageURL(nav Navigable) (string, error) {
	return s.AbsoluteURL(nav.Server(), nav.Descriptor().Path)
}

// GoTo navigates to path on server without waiting for any page.
func (s *Session) GoTo(ctx context.Context, server Server, path string) error {
	u, err := s.AbsoluteURL(server, path)
	if err != nil {
		return err
	}
	s.log.Debug("navigate", zap.String("server", server.String()), zap.String("url", u))
	if err := s.drv.Navigate(ctx, u); err != nil {
		return fmt.Errorf("navigate to %s: %w", u, err)
	}
	return nil
}

// Open navigates to nav's canonical URL and waits until it is ready.
func (s *Session) Open(ctx context.Context, nav Navigable) error {
	if err := s.GoTo(ctx, nav.Server(), nav.Descriptor().Path); err != nil {
		return err
	}
	return s.WaitForPage(ctx, nav)
}

// RefreshPage reloads the current document.
func (s *Session) RefreshPage(ctx context.Context) error {
	return s.drv.Reload(ctx)
}

// CurrentURL returns the browser's current absolute URL.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	return s.drv.CurrentURL(ctx)
}

// ExecuteScript runs a JavaScript function expression in the page.
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	return s.drv.ExecuteScript(ctx, script, args...)
}

func (s *Session) step(ctx context.Context, format string, args ...any) {
	if s.hook == nil {
		return
	}
	step := fmt.Sprintf(format, args...)
	// A screenshot blocks until the dialog is handled.
	if open, err := s.drv.DialogOpen(ctx); err == nil && open {
		s.log.Debug("step not captured, dialog open", zap.String("step", step))
		return
	}
	s.hook(ctx, step)
}
