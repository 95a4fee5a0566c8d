// Package config loads the properties shared by every page object: server
// endpoints, credentials, timeouts and browser options.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the CLI name
	AppName = "facilityqa"
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "FACILITYQA_"
)

// Credentials for one server group.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Properties holds all configuration read by page objects.
type Properties struct {
	EmrURL      string `yaml:"emr_url"`
	LabURL      string `yaml:"lab_url"`
	FacilityURL string `yaml:"facility_url"`

	Emr      Credentials `yaml:"emr"`
	Lab      Credentials `yaml:"lab"`
	Facility Credentials `yaml:"facility"`

	// Timeout bounds every readiness and element wait.
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the delay between two evaluations of a wait condition.
	PollInterval time.Duration `yaml:"poll_interval"`
	// DialogProbe bounds AlertPresent/PromptPresent.
	DialogProbe time.Duration `yaml:"dialog_probe"`
	// ReadyIndicator overrides the readiness variable of pages that declare one.
	ReadyIndicator string `yaml:"ready_indicator"`

	Browser BrowserProperties `yaml:"browser"`
}

// BrowserProperties configures the launched browser.
type BrowserProperties struct {
	Headless   bool   `yaml:"headless"`
	Bin        string `yaml:"bin"`
	ControlURL string `yaml:"control_url"` // connect to a running browser instead of launching one
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	IgnoreCert bool   `yaml:"ignore_cert_errors"`
}

// Default returns the default properties
func Default() Properties {
	return Properties{
		Timeout:      30 * time.Second,
		PollInterval: 500 * time.Millisecond,
		DialogProbe:  time.Second,
		Browser: BrowserProperties{
			Headless: true,
			Width:    1280,
			Height:   720,
		},
	}
}

// Load builds Properties from defaults, an optional YAML file, an optional
// .env file and FACILITYQA_* environment variables, in that order.
func Load(path, envFile string) (Properties, error) {
	props := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return props, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &props); err != nil {
			return props, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return props, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&props, os.LookupEnv); err != nil {
		return props, err
	}
	return props, nil
}

func applyEnv(p *Properties, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"EMR_URL":           &p.EmrURL,
		"LAB_URL":           &p.LabURL,
		"FACILITY_URL":      &p.FacilityURL,
		"EMR_USERNAME":      &p.Emr.Username,
		"EMR_PASSWORD":      &p.Emr.Password,
		"LAB_USERNAME":      &p.Lab.Username,
		"LAB_PASSWORD":      &p.Lab.Password,
		"FACILITY_USERNAME": &p.Facility.Username,
		"FACILITY_PASSWORD": &p.Facility.Password,
		"READY_INDICATOR":   &p.ReadyIndicator,
		"BROWSER_BIN":       &p.Browser.Bin,
		"CONTROL_URL":       &p.Browser.ControlURL,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":       &p.Timeout,
		"POLL_INTERVAL": &p.PollInterval,
		"DIALOG_PROBE":  &p.DialogProbe,
	}
	for key, dst := range durations {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
	}

	if v, ok := lookup(EnvPrefix + "HEADLESS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sHEADLESS: %w", EnvPrefix, err)
		}
		p.Browser.Headless = b
	}
	return nil
}

// Endpoints validates and normalizes the three server URLs.
func (p Properties) Endpoints() (Endpoints, error) {
	return NewEndpoints(p.EmrURL, p.LabURL, p.FacilityURL)
}

// Endpoints holds normalized base URLs of the three server groups. An empty
// field means the group is not configured.
type Endpoints struct {
	Emr      string
	Lab      string
	Facility string
	// ContextPath is the path component of the EMR URL.
	ContextPath string
}

// NewEndpoints normalizes each non-empty URL and fails on the first one that
// is not an absolute URL.
func NewEndpoints(emr, lab, facility string) (Endpoints, error) {
	var e Endpoints
	var err error
	if e.Emr, err = normalize("emr url", emr); err != nil {
		return Endpoints{}, err
	}
	if e.Lab, err = normalize("lab url", lab); err != nil {
		return Endpoints{}, err
	}
	if e.Facility, err = normalize("facility url", facility); err != nil {
		return Endpoints{}, err
	}
	if e.Emr != "" {
		u, _ := url.Parse(e.Emr)
		e.ContextPath = u.Path
	}
	return e, nil
}

func normalize(name, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	trimmed := strings.TrimRight(raw, "/")
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%s %q is not a valid URL: %w", name, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s %q is not a valid URL: scheme and host are required", name, raw)
	}
	return trimmed, nil
}
