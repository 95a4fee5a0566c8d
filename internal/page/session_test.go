package page_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/facilityqa/internal/page"
	"github.com/v0xg/facilityqa/internal/page/pagetest"
)

func TestNewSessionRejectsMalformedURL(t *testing.T) {
	drv := pagetest.New()
	props := testProps()
	props.LabURL = "lab.registry.test/lab"

	_, err := page.NewSession(drv, props, page.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lab")
	assert.Empty(t, drv.Navigations())
}

func TestURLHelpers(t *testing.T) {
	s := newSession(t, pagetest.New())

	assert.Equal(t, "/openmrs/patientDashboard.form", s.ContextPageURL("patientDashboard.form"))
	assert.Equal(t, "/openmrs/login.htm", s.ContextPageURL("/login.htm"))

	u, err := s.AbsoluteURL(page.ServerLab, "LoginPage.do")
	require.NoError(t, err)
	assert.Equal(t, labURL+"/LoginPage.do", u)

	u, err = s.AbsolutePageURL(homePage{})
	require.NoError(t, err)
	assert.Equal(t, labURL+"/HomePage.do", u)

	_, err = s.AbsoluteURL(page.ServerFacility, "/Search.do")
	assert.ErrorIs(t, err, page.ErrServerNotConfigured)
}

func TestGoToUnconfiguredServerDoesNotNavigate(t *testing.T) {
	drv := pagetest.New()
	s := newSession(t, drv)

	err := s.GoTo(context.Background(), page.ServerFacility, "/Search.do")
	assert.ErrorIs(t, err, page.ErrServerNotConfigured)
	assert.Empty(t, drv.Navigations())
}

func TestOpenNavigatesAndWaits(t *testing.T) {
	drv := pagetest.New()
	drv.OnNavigate(func(d *pagetest.Driver, url string) {
		d.SetReadyState("loading")
		time.AfterFunc(20*time.Millisecond, func() { d.SetReadyState("complete") })
	})
	s := newSession(t, drv)

	require.NoError(t, s.Open(context.Background(), homePage{}))
	assert.Equal(t, []string{labURL + "/HomePage.do"}, drv.Navigations())

	require.NoError(t, s.RefreshPage(context.Background()))
	assert.Equal(t, 1, drv.Reloads())
}

type selfOpening struct {
	homePage
	opened *bool
}

func (p selfOpening) Go(ctx context.Context) error {
	*p.opened = true
	return nil
}

func TestGoPrefersPageOwnOpener(t *testing.T) {
	drv := pagetest.New()
	s := newSession(t, drv)

	var opened bool
	require.NoError(t, page.Go(context.Background(), s, selfOpening{opened: &opened}))
	assert.True(t, opened)
	assert.Empty(t, drv.Navigations())

	require.NoError(t, page.Go(context.Background(), s, homePage{}))
	assert.Equal(t, []string{labURL + "/HomePage.do"}, drv.Navigations())
}

func TestArrive(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/HomePage.do")
	s := newSession(t, drv)
	ctx := context.Background()

	_, err := page.Arrive(ctx, s, loginPage{}, homePage{indicator: "pageReady"})
	require.Error(t, err, "indicator not set yet")

	drv.SetVar("pageReady", true)
	home, err := page.Arrive(ctx, s, loginPage{}, homePage{indicator: "pageReady"})
	require.NoError(t, err)
	assert.Equal(t, "pageReady", home.indicator)
}

func TestArriveRejectsSamePageType(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/HomePage.do")
	s := newSession(t, drv)

	_, err := page.Arrive(context.Background(), s, homePage{}, homePage{})
	assert.True(t, errors.Is(err, page.ErrSamePageTransition))
	assert.Zero(t, drv.URLReads(), "misuse is reported before waiting")
}

func TestArriveAfterStale(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/HomePage.do")
	old := pagetest.NewElement()
	drv.Add(page.ByID("results"), old)
	s := newSession(t, drv)

	time.AfterFunc(20*time.Millisecond, func() {
		drv.Detach()
		drv.Add(page.ByID("results"), pagetest.NewElement())
	})
	_, err := page.ArriveAfterStale(context.Background(), s, old, homePage{})
	require.NoError(t, err)
}

func TestParseServer(t *testing.T) {
	for _, name := range []string{"emr", "Lab", "FACILITY"} {
		srv, err := page.ParseServer(name)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(name), srv.String())
	}
	_, err := page.ParseServer("billing")
	assert.Error(t, err)
}

func TestParseBy(t *testing.T) {
	tests := []struct {
		in   string
		want page.By
	}{
		{"id=loginName", page.ByID("loginName")},
		{"xpath=//a[@href='x=1']", page.ByXPath("//a[@href='x=1']")},
		{"class=field-error", page.ByClass("field-error")},
		{"form > input[name=q]", page.ByCSS("form > input[name=q]")},
		{"#submitButton", page.ByCSS("#submitButton")},
	}
	for _, tt := range tests {
		got, err := page.ParseBy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "  ", "id="} {
		_, err := page.ParseBy(bad)
		assert.Error(t, err, bad)
	}
}
