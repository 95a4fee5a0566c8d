package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/facilityqa/internal/config"
	"github.com/v0xg/facilityqa/internal/page"
	"github.com/v0xg/facilityqa/internal/page/pagetest"
)

const labURL = "https://lab.registry.test/lab"

const smoke = `
name: lab login smoke
steps:
  - action: go
    path: /LoginPage.do
  - action: type
    target: id=loginName
    text: admin
  - action: type
    target: name=password
    text: secret
    enter: true
  - action: select
    target: id=locale
    text: English
  - action: wait
    var: pageReady
  - action: wait
    duration: 5ms
  - action: expect_text
    text: Welcome
  - action: expect_text
    target: css=h1.banner
    text: Lab
`

func newSession(t *testing.T, drv page.Driver) *page.Session {
	t.Helper()
	props := config.Default()
	props.LabURL = labURL
	props.FacilityURL = "https://facility.registry.test/"
	props.Timeout = 150 * time.Millisecond
	props.PollInterval = 5 * time.Millisecond
	props.DialogProbe = 50 * time.Millisecond
	s, err := page.NewSession(drv, props, page.Options{})
	require.NoError(t, err)
	return s
}

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(smoke))
	require.NoError(t, err)
	assert.Equal(t, "lab login smoke", sc.Name)
	assert.Equal(t, "lab", sc.Server)
	require.Len(t, sc.Steps, 8)
	assert.True(t, sc.Steps[2].Enter)
	assert.Equal(t, 5*time.Millisecond, sc.Steps[5].Duration)
	assert.Equal(t, `expect_text "Welcome"`, sc.Steps[6].String())
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "name: x\nsteps:\n  - action: click\n    selector: '#a'\n",
		"unknown action":  "steps:\n  - action: scroll\n",
		"missing target":  "steps:\n  - action: click\n",
		"missing path":    "steps:\n  - action: go\n",
		"empty wait":      "steps:\n  - action: wait\n",
		"no steps":        "name: x\n",
		"bad server":      "server: billing\nsteps:\n  - action: refresh\n",
		"bad step server": "steps:\n  - action: go\n    path: /\n    server: billing\n",
		"bad locator":     "steps:\n  - action: hover\n    target: 'id='\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smoke), 0o644))
	sc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, sc.Steps, 8)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	drv := pagetest.New()
	user, password := pagetest.NewElement(), pagetest.NewElement()
	locale := pagetest.NewElement().WithOptions("French", "English")
	drv.Add(page.ByID("loginName"), user)
	drv.Add(page.ByName("password"), password)
	drv.Add(page.ByID("locale"), locale)
	drv.Add(page.ByCSS("h1.banner"), pagetest.NewElement().WithText("Lab Home"))
	drv.SetVar("pageReady", true)
	drv.SetSource("<h1 class=banner>Lab Home</h1><p>Welcome admin</p>")

	sc, err := Parse([]byte(smoke))
	require.NoError(t, err)

	res, err := Run(context.Background(), newSession(t, drv), sc)
	require.NoError(t, err)
	assert.Nil(t, res.Failed())
	assert.Len(t, res.Steps, 8)

	assert.Equal(t, []string{labURL + "/LoginPage.do"}, drv.Navigations())
	assert.Equal(t, "admin", user.Value())
	assert.Empty(t, user.Keys())
	assert.Equal(t, "secret", password.Value())
	assert.Equal(t, []page.Key{page.KeyEnter}, password.Keys())
	assert.Equal(t, "English", locale.Selected())
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	drv := pagetest.New()
	drv.SetSource("<p>Invalid username or password</p>")
	sc := &Scenario{
		Name:   "failing",
		Server: "facility",
		Steps: []Step{
			{Action: ActionGo, Path: "/registry"},
			{Action: ActionExpectText, Text: "Welcome"},
			{Action: ActionRefresh},
		},
	}
	require.NoError(t, sc.Validate())

	res, err := Run(context.Background(), newSession(t, drv), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")

	failed := res.Failed()
	require.NotNil(t, failed)
	assert.Equal(t, 1, failed.Index)
	assert.Len(t, res.Steps, 2)
	assert.Equal(t, []string{"https://facility.registry.test/registry"}, drv.Navigations())
	assert.Zero(t, drv.Reloads())
}

func TestRunWaitsForSlowPage(t *testing.T) {
	drv := pagetest.New()
	drv.OnNavigate(func(d *pagetest.Driver, url string) {
		d.SetReadyState("loading")
		d.SetSource("")
		time.AfterFunc(40*time.Millisecond, func() {
			d.SetSource("<p>Welcome admin</p>")
			d.SetReadyState("complete")
		})
	})
	sc := &Scenario{Server: "lab", Steps: []Step{
		{Action: ActionGo, Path: "/HomePage.do"},
		{Action: ActionExpectText, Text: "Welcome"},
	}}

	res, err := Run(context.Background(), newSession(t, drv), sc)
	require.NoError(t, err)
	assert.Nil(t, res.Failed())
}

func TestRunGoTimesOutOnStuckPage(t *testing.T) {
	drv := pagetest.New()
	drv.OnNavigate(func(d *pagetest.Driver, url string) { d.SetReadyState("loading") })
	sc := &Scenario{Server: "lab", Steps: []Step{{Action: ActionGo, Path: "/HomePage.do"}}}

	_, err := Run(context.Background(), newSession(t, drv), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
}

func TestRunAlerts(t *testing.T) {
	drv := pagetest.New()
	drv.OpenDialog()
	sc := &Scenario{Server: "lab", Steps: []Step{{Action: ActionAcceptAlert}}}

	_, err := Run(context.Background(), newSession(t, drv), sc)
	require.NoError(t, err)
	handled, accepted := drv.DialogResult()
	assert.True(t, handled)
	assert.True(t, accepted)

	sc.Steps = []Step{{Action: ActionDismissAlert}}
	_, err = Run(context.Background(), newSession(t, drv), sc)
	assert.Error(t, err)
}

func TestPauseHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pause(ctx, time.Hour), context.Canceled)
}
