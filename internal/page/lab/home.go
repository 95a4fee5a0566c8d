package lab

import (
	"context"

	"github.com/v0xg/facilityqa/internal/page"
)

const (
	HomePath      = "/HomePage.do"
	DashboardPath = "/Dashboard.do"
)

// HomePage is the landing page after a Lab login. Older releases redirect to
// the dashboard instead; both count as arrival.
type HomePage struct {
	s         *page.Session
	indicator string
}

// NewHomePage binds a home page to s. The readiness indicator comes from
// the session properties and is optional.
func NewHomePage(s *page.Session) *HomePage {
	return &HomePage{s: s, indicator: s.Properties().ReadyIndicator}
}

func (h *HomePage) Descriptor() page.Descriptor {
	return page.Descriptor{
		Path:           HomePath,
		AliasPath:      DashboardPath,
		RejectPath:     LoginPath,
		ReadyIndicator: h.indicator,
	}
}

func (h *HomePage) Server() page.Server { return page.ServerLab }

// Logout ends the Lab session and returns the login page.
func (h *HomePage) Logout(ctx context.Context) (*LoginPage, error) {
	if err := h.s.GoTo(ctx, page.ServerLab, LogoutPath); err != nil {
		return nil, err
	}
	return page.Arrive(ctx, h.s, h, NewLoginPage(h.s))
}
