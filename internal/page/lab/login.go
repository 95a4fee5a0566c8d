// Package lab holds the page objects of the laboratory server.
package lab

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/v0xg/facilityqa/internal/page"
)

const (
	LoginPath  = "/LoginPage.do"
	LogoutPath = "/logout"
)

// ErrLoginRejected is returned when a login attempt lands back on the login
// page.
var ErrLoginRejected = errors.New("login rejected")

var (
	fieldUsername = page.ByID("loginName")
	fieldPassword = page.ByID("password")
	buttonSubmit  = page.ByID("submitButton")

	buttonAdvanced = page.ByID("details-button")
	linkProceed    = page.ByID("proceed-link")
)

// LoginPage is the Lab login form.
type LoginPage struct {
	s        *page.Session
	username string
	password string
}

// NewLoginPage binds a login page to s with the configured Lab credentials.
func NewLoginPage(s *page.Session) *LoginPage {
	creds := s.Properties().Lab
	return &LoginPage{s: s, username: creds.Username, password: creds.Password}
}

func (p *LoginPage) Descriptor() page.Descriptor { return page.Descriptor{Path: LoginPath} }
func (p *LoginPage) Server() page.Server         { return page.ServerLab }

// Username returns the configured Lab username.
func (p *LoginPage) Username() string { return p.username }

// Go opens the login page, clicking through a self-signed certificate
// warning if the browser shows one.
func (p *LoginPage) Go(ctx context.Context) error {
	if err := p.s.GoTo(ctx, page.ServerLab, LoginPath); err != nil {
		return err
	}
	if err := p.acceptSelfSignedCert(ctx); err != nil {
		return err
	}
	return p.s.WaitForPage(ctx, p)
}

func (p *LoginPage) acceptSelfSignedCert(ctx context.Context) error {
	if !p.s.HasElementWithoutWait(ctx, buttonAdvanced) {
		return nil
	}
	p.s.Logger().Debug("accepting self-signed certificate")
	if err := p.s.ClickOn(ctx, buttonAdvanced); err != nil {
		return err
	}
	return p.s.ClickOn(ctx, linkProceed)
}

func (p *LoginPage) EnterUsername(ctx context.Context, username string) error {
	return p.s.SetTextNoEnter(ctx, fieldUsername, username)
}

func (p *LoginPage) EnterPassword(ctx context.Context, password string) error {
	return p.s.SetTextNoEnter(ctx, fieldPassword, password)
}

func (p *LoginPage) LoginButton(ctx context.Context) (page.Element, error) {
	return p.s.FindElement(ctx, buttonSubmit)
}

// GoToHomePage opens the login page and logs in with the configured
// credentials.
func (p *LoginPage) GoToHomePage(ctx context.Context) (*HomePage, error) {
	if err := p.Go(ctx); err != nil {
		return nil, err
	}
	return p.LoginAs(ctx, p.username, p.password)
}

// LoginAs submits the form and returns the home page once it is ready. A
// login that lands back on this page fails with ErrLoginRejected.
func (p *LoginPage) LoginAs(ctx context.Context, username, password string) (*HomePage, error) {
	if err := p.EnterUsername(ctx, username); err != nil {
		return nil, err
	}
	if err := p.EnterPassword(ctx, password); err != nil {
		return nil, err
	}
	button, err := p.LoginButton(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.s.ClickOn(ctx, buttonSubmit); err != nil {
		return nil, err
	}
	// The form page is the home page's reject path, so wait for the
	// submission to replace it before checking where we landed.
	if err := p.s.WaitForStalenessOf(ctx, button); err != nil {
		return nil, fmt.Errorf("submit login form: %w", err)
	}

	home, err := page.Arrive(ctx, p.s, p, NewHomePage(p.s))
	if err != nil {
		return nil, err
	}
	rejected, err := p.s.Rejected(ctx, home)
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, p.rejection(ctx, username)
	}
	return home, nil
}

func (p *LoginPage) rejection(ctx context.Context, username string) error {
	msgs, err := p.s.ValidationErrors(ctx)
	if err != nil || len(msgs) == 0 {
		return fmt.Errorf("%w for %q", ErrLoginRejected, username)
	}
	return fmt.Errorf("%w for %q: %s", ErrLoginRejected, username, strings.Join(msgs, "; "))
}
