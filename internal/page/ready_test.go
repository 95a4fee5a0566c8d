package page_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/facilityqa/internal/config"
	"github.com/v0xg/facilityqa/internal/page"
	"github.com/v0xg/facilityqa/internal/page/pagetest"
	"github.com/v0xg/facilityqa/internal/wait"
)

const labURL = "https://lab.registry.test/lab"

type loginPage struct{}

func (loginPage) Descriptor() page.Descriptor { return page.Descriptor{Path: "/LoginPage.do"} }
func (loginPage) Server() page.Server         { return page.ServerLab }

type homePage struct {
	indicator string
}

func (h homePage) Descriptor() page.Descriptor {
	return page.Descriptor{
		Path:           "/HomePage.do",
		AliasPath:      "/Dashboard.do",
		RejectPath:     "/LoginPage.do",
		ReadyIndicator: h.indicator,
	}
}
func (homePage) Server() page.Server { return page.ServerLab }

func testProps() config.Properties {
	props := config.Default()
	props.EmrURL = "https://emr.registry.test/openmrs/"
	props.LabURL = labURL + "/"
	props.Timeout = 200 * time.Millisecond
	props.PollInterval = 5 * time.Millisecond
	props.DialogProbe = 60 * time.Millisecond
	return props
}

func newSession(t *testing.T, drv page.Driver) *page.Session {
	t.Helper()
	s, err := page.NewSession(drv, testProps(), page.Options{})
	require.NoError(t, err)
	return s
}

func TestWaitForPageCanonicalAndAlias(t *testing.T) {
	for _, path := range []string{"/HomePage.do", "/Dashboard.do"} {
		t.Run(path, func(t *testing.T) {
			drv := pagetest.New()
			drv.SetURL(labURL + path + "?session=1")
			s := newSession(t, drv)

			require.NoError(t, s.WaitForPage(context.Background(), homePage{}))
		})
	}
}

func TestWaitForPageWrongURLTimesOut(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/SamplePage.do")
	s := newSession(t, drv)

	err := s.WaitForPage(context.Background(), homePage{})
	var te *wait.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Message, "/HomePage.do")
}

func TestWaitForPageRejectSettlesImmediately(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/LoginPage.do?error=1")
	drv.SetReadyState("loading")
	s := newSession(t, drv)

	start := time.Now()
	require.NoError(t, s.WaitForPage(context.Background(), homePage{indicator: "pageReady"}))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	rejected, err := s.Rejected(context.Background(), homePage{})
	require.NoError(t, err)
	assert.True(t, rejected)
}

func TestWaitForPageRequiresCompleteDocument(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/HomePage.do")
	drv.SetReadyState("interactive")
	s := newSession(t, drv)

	err := s.WaitForPage(context.Background(), homePage{})
	assert.True(t, wait.IsTimeout(err))

	time.AfterFunc(30*time.Millisecond, func() { drv.SetReadyState("complete") })
	require.NoError(t, s.WaitForPage(context.Background(), homePage{}))
}

func TestWaitForPageRequiresTruthyIndicator(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d *pagetest.Driver)
	}{
		{"undefined", func(d *pagetest.Driver) {}},
		{"false", func(d *pagetest.Driver) { d.SetVar("pageReady", false) }},
		{"null", func(d *pagetest.Driver) { d.SetVar("pageReady", nil) }},
		{"empty string", func(d *pagetest.Driver) { d.SetVar("pageReady", "") }},
		{"zero", func(d *pagetest.Driver) { d.SetVar("pageReady", 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := pagetest.New()
			drv.SetURL(labURL + "/HomePage.do")
			tt.setup(drv)
			s := newSession(t, drv)

			err := s.WaitForPage(context.Background(), homePage{indicator: "pageReady"})
			assert.True(t, wait.IsTimeout(err), "got %v", err)
		})
	}
}

func TestWaitForPageIndicatorBecomesTrue(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/HomePage.do")
	s := newSession(t, drv)

	time.AfterFunc(40*time.Millisecond, func() { drv.SetVar("pageReady", true) })
	require.NoError(t, s.WaitForPage(context.Background(), homePage{indicator: "pageReady"}))
}

func TestWaitForPageIndicatorOverride(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/HomePage.do")
	drv.SetVar("appLoaded", 1)

	props := testProps()
	props.ReadyIndicator = "appLoaded"
	s, err := page.NewSession(drv, props, page.Options{})
	require.NoError(t, err)

	require.NoError(t, s.WaitForPage(context.Background(), homePage{indicator: "pageReady"}))
}

func TestWaitForPageReevaluatesEveryTick(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/Elsewhere.do")
	s := newSession(t, drv)

	time.AfterFunc(30*time.Millisecond, func() { drv.SetURL(labURL + "/HomePage.do") })
	require.NoError(t, s.WaitForPage(context.Background(), homePage{}))
	assert.Greater(t, drv.URLReads(), 2)
}

func TestWaitForPageRejectsBadDescriptor(t *testing.T) {
	s := newSession(t, pagetest.New())
	err := s.WaitForPage(context.Background(), homePage{indicator: "window.ready; alert(1)"})
	require.Error(t, err)
	assert.False(t, wait.IsTimeout(err))
}

func TestWaitForPageHonoursCancellation(t *testing.T) {
	drv := pagetest.New()
	drv.SetURL(labURL + "/Elsewhere.do")
	s := newSession(t, drv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.WaitForPage(ctx, homePage{})
	assert.ErrorIs(t, err, context.Canceled)
}

type reporter struct {
	failed bool
	msg    string
}

func (r *reporter) Helper() {}
func (r *reporter) Fatalf(format string, args ...any) {
	r.failed = true
	r.msg = fmt.Sprintf(format, args...)
}

func TestWaitForPageToLoad(t *testing.T) {
	drv := pagetest.New()
	s := newSession(t, drv)

	r := &reporter{}
	s.WaitForPageToLoad(context.Background(), r)
	assert.False(t, r.failed)

	drv.SetReadyState("loading")
	s.WaitForPageToLoad(context.Background(), r)
	assert.True(t, r.failed)
	assert.Contains(t, r.msg, "Timeout waiting for Page")
}

func TestWaitForDocument(t *testing.T) {
	drv := pagetest.New()
	drv.SetReadyState("interactive")
	s := newSession(t, drv)

	time.AfterFunc(20*time.Millisecond, func() { drv.SetReadyState("complete") })
	require.NoError(t, s.WaitForDocument(context.Background()))

	drv.SetReadyState("loading")
	assert.True(t, wait.IsTimeout(s.WaitForDocument(context.Background())))
}

func TestWaitForTextInPage(t *testing.T) {
	drv := pagetest.New()
	s := newSession(t, drv)

	time.AfterFunc(20*time.Millisecond, func() { drv.SetSource("<p>Welcome admin</p>") })
	require.NoError(t, s.WaitForTextInPage(context.Background(), "Welcome admin"))

	err := s.WaitForTextInPage(context.Background(), "Results")
	assert.True(t, wait.IsTimeout(err))
}
