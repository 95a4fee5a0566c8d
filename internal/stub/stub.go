// Package stub serves a minimal laboratory server for exercising the page
// objects end to end without a real deployment: a login form, a home page
// whose readiness variable is set after a delay, a dashboard alias and a
// logout route.
package stub

import (
	"context"
	"errors"
	"html/template"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionCookie = "LABSESSIONID"

// Options configures the stub server
type Options struct {
	// Prefix mounts every page, e.g. "/lab".
	Prefix   string
	Username string
	Password string
	// ReadyDelay is how long after load the home page sets its indicator.
	ReadyDelay time.Duration
	// Indicator is the script variable set when the home page is ready.
	Indicator string
	// Alert, when set, is shown as a native alert on the home page.
	Alert string
}

// DefaultOptions returns the default stub options
func DefaultOptions() Options {
	return Options{
		Prefix:     "/lab",
		Username:   "admin",
		Password:   "admin",
		ReadyDelay: 300 * time.Millisecond,
		Indicator:  "pageReady",
	}
}

// Server is the stub laboratory server.
type Server struct {
	app  *fiber.App
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[string]string
}

// New builds the stub server. It does not listen until Serve.
func New(opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	opts.Prefix = "/" + strings.Trim(opts.Prefix, "/")
	if opts.Prefix == "/" {
		opts.Prefix = ""
	}
	if opts.Indicator == "" {
		opts.Indicator = "pageReady"
	}

	s := &Server{
		opts:     opts,
		log:      log,
		sessions: make(map[string]string),
		app: fiber.New(fiber.Config{
			AppName:               "facilityqa-stub",
			DisableStartupMessage: true,
		}),
	}
	s.app.Use(recover.New())
	s.app.Use(s.logRequests)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	lab := s.app.Group(opts.Prefix)
	lab.Get("/LoginPage.do", s.loginForm)
	lab.Post("/LoginPage.do", s.login)
	lab.Get("/HomePage.do", s.requireSession(s.home))
	lab.Get("/Dashboard.do", s.requireSession(s.home))
	lab.Get("/logout", s.logout)
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Serve listens on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()
	s.log.Info("stub server listening", zap.String("addr", ln.Addr().String()), zap.String("prefix", s.opts.Prefix))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)
	return err
}

func (s *Server) url(path string) string { return s.opts.Prefix + path }

func (s *Server) user(c *fiber.Ctx) (string, bool) {
	token := c.Cookies(sessionCookie)
	if token == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.sessions[token]
	return user, ok
}

func (s *Server) requireSession(next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := s.user(c); !ok {
			return c.Redirect(s.url("/LoginPage.do"))
		}
		return next(c)
	}
}

func (s *Server) loginForm(c *fiber.Ctx) error {
	return s.render(c, loginTemplate, loginData{Action: s.url("/LoginPage.do")})
}

func (s *Server) login(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.FormValue("loginName"))
	password := c.FormValue("password")

	var errs []string
	if username == "" {
		errs = append(errs, "Username is required")
	}
	if password == "" {
		errs = append(errs, "Password is required")
	}
	if len(errs) == 0 && (username != s.opts.Username || password != s.opts.Password) {
		errs = append(errs, "Invalid username or password")
	}
	if len(errs) > 0 {
		s.log.Info("login rejected", zap.String("username", username))
		return s.render(c, loginTemplate, loginData{
			Action:   s.url("/LoginPage.do"),
			Username: username,
			Errors:   errs,
		})
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = username
	s.mu.Unlock()

	c.Cookie(&fiber.Cookie{Name: sessionCookie, Value: token, Path: "/", HTTPOnly: true})
	return c.Redirect(s.url("/HomePage.do"))
}

func (s *Server) home(c *fiber.Ctx) error {
	user, _ := s.user(c)
	return s.render(c, homeTemplate, homeData{
		User:      user,
		Logout:    s.url("/logout"),
		Indicator: s.opts.Indicator,
		DelayMS:   s.opts.ReadyDelay.Milliseconds(),
		Alert:     s.opts.Alert,
	})
}

func (s *Server) logout(c *fiber.Ctx) error {
	if token := c.Cookies(sessionCookie); token != "" {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
	})
	return c.Redirect(s.url("/LoginPage.do"))
}

func (s *Server) render(c *fiber.Ctx, t *template.Template, data any) error {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.SendString(b.String())
}
