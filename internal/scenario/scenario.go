// Package scenario runs YAML-described smoke flows through a page.Session.
//
// A scenario file looks like:
//
//	name: lab login smoke
//	server: lab
//	steps:
//	  - action: go
//	    path: /LoginPage.do
//	  - action: type
//	    target: id=loginName
//	    text: admin
//	  - action: click
//	    target: id=submitButton
//	  - action: wait
//	    var: pageReady
//	  - action: expect_text
//	    text: Welcome
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/v0xg/facilityqa/internal/page"
)

// Actions understood by Run.
const (
	ActionGo           = "go"
	ActionClick        = "click"
	ActionType         = "type"
	ActionSelect       = "select"
	ActionHover        = "hover"
	ActionWait         = "wait"
	ActionRefresh      = "refresh"
	ActionAcceptAlert  = "accept_alert"
	ActionDismissAlert = "dismiss_alert"
	ActionExpectText   = "expect_text"
)

// Scenario is a named sequence of steps against one default server.
type Scenario struct {
	Name   string `yaml:"name"`
	Server string `yaml:"server,omitempty"` // emr, lab or facility; defaults to lab
	Steps  []Step `yaml:"steps"`
}

// Step represents a single browser action
type Step struct {
	Action string `yaml:"action"`
	Target string `yaml:"target,omitempty"` // locator, "strategy=value" or a CSS selector
	Text   string `yaml:"text,omitempty"`   // text to type, option to select, or text to expect
	Enter  bool   `yaml:"enter,omitempty"`  // press Enter after typing
	Path   string `yaml:"path,omitempty"`   // for go
	Server string `yaml:"server,omitempty"` // for go, overrides the scenario server
	Var    string `yaml:"var,omitempty"`    // for wait, a script variable to become truthy
	// For wait without target or var, how long to pause.
	Duration time.Duration `yaml:"duration,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Server == "" {
		sc.Server = page.ServerLab.String()
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks every step has what its action needs.
func (sc *Scenario) Validate() error {
	if _, err := page.ParseServer(sc.Server); err != nil {
		return err
	}
	if len(sc.Steps) == 0 {
		return errors.New("scenario has no steps")
	}
	for i, st := range sc.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	needTarget := func() error {
		if st.Target == "" {
			return errors.New("target is required")
		}
		_, err := page.ParseBy(st.Target)
		return err
	}

	switch st.Action {
	case ActionGo:
		if st.Path == "" {
			return errors.New("path is required")
		}
		if st.Server != "" {
			if _, err := page.ParseServer(st.Server); err != nil {
				return err
			}
		}
	case ActionClick, ActionHover:
		return needTarget()
	case ActionType, ActionSelect:
		return needTarget()
	case ActionWait:
		if st.Target == "" && st.Var == "" && st.Duration <= 0 {
			return errors.New("one of target, var or duration is required")
		}
		if st.Target != "" {
			return needTarget()
		}
	case ActionExpectText:
		if st.Text == "" {
			return errors.New("text is required")
		}
		if st.Target != "" {
			return needTarget()
		}
	case ActionRefresh, ActionAcceptAlert, ActionDismissAlert:
	case "":
		return errors.New("action is required")
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

func (st Step) String() string {
	switch {
	case st.Action == ActionGo:
		return st.Action + " " + st.Path
	case st.Target != "":
		return st.Action + " " + st.Target
	case st.Var != "":
		return st.Action + " " + st.Var
	case st.Text != "":
		return fmt.Sprintf("%s %q", st.Action, st.Text)
	default:
		return st.Action
	}
}
