package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/facilityqa/internal/browser"
	"github.com/v0xg/facilityqa/internal/config"
	"github.com/v0xg/facilityqa/internal/page"
	"github.com/v0xg/facilityqa/internal/recorder"
)

var (
	configPath string
	envFile    string
	controlURL string
	headful    bool
	timeout    time.Duration
	recordDir  string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Drive the facility registry servers through their page objects",
		Long: `facilityqa opens the registry's EMR, laboratory and facility servers in a
browser and drives them through page objects: log in, check that a page
becomes ready, suggest locators for a page, or run YAML smoke scenarios.

Configuration is read from --config, then --env-file, then FACILITYQA_*
environment variables.

Example:
  facilityqa login --record out/
  facilityqa check lab /HomePage.do --indicator pageReady
  facilityqa run smoke/lab-login.yaml`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML properties file")
	flags.StringVar(&envFile, "env-file", ".env", "Env file loaded before FACILITYQA_* variables")
	flags.StringVar(&controlURL, "control-url", "", "Connect to a running browser instead of launching one")
	flags.BoolVar(&headful, "headful", false, "Show the browser window")
	flags.DurationVar(&timeout, "timeout", 0, "Override the wait timeout")
	flags.StringVar(&recordDir, "record", "", "Write a GIF walkthrough and failure thumbnails to this directory")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(loginCmd(), checkCmd(), inspectCmd(), runCmd(), stubCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func loadProperties() (config.Properties, error) {
	props, err := config.Load(configPath, envFile)
	if err != nil {
		return props, err
	}
	if controlURL != "" {
		props.Browser.ControlURL = controlURL
	}
	if headful {
		props.Browser.Headless = false
	}
	if timeout > 0 {
		props.Timeout = timeout
	}
	return props, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// env is a launched browser with a session on it.
type env struct {
	log     *zap.Logger
	props   config.Properties
	browser *browser.Browser
	session *page.Session
	rec     *recorder.Recorder
}

var launchBrowser = browser.Launch

func openEnv(ctx context.Context) (*env, error) {
	log := newLogger()
	props, err := loadProperties()
	if err != nil {
		return nil, err
	}
	if _, err := props.Endpoints(); err != nil {
		return nil, err
	}

	fmt.Printf("→ Starting browser... ")
	b, err := launchBrowser(ctx, props.Browser, log)
	if err != nil {
		fmt.Println("failed")
		return nil, err
	}
	fmt.Println("done")

	e := &env{log: log, props: props, browser: b}
	opts := page.Options{Logger: log}
	if recordDir != "" {
		if err := os.MkdirAll(recordDir, 0o755); err != nil {
			b.Close()
			return nil, err
		}
		e.rec = recorder.New(b, recorder.Options{Dir: recordDir, GIF: recorder.GIFOptions{Progress: true}}, log)
		opts.StepHook = e.rec.Hook()
	}

	e.session, err = page.NewSession(b.Driver(), props, opts)
	if err != nil {
		b.Close()
		return nil, err
	}
	return e, nil
}

// finish writes recordings for the command named name and closes the
// browser. A thumbnail of the last screen is kept when runErr is set.
func (e *env) finish(ctx context.Context, name string, runErr error) error {
	defer e.browser.Close()
	defer e.log.Sync() //nolint:errcheck
	if e.rec == nil {
		return runErr
	}

	if runErr != nil {
		if path, err := e.rec.Failure(ctx, name+"-failure"); err == nil {
			fmt.Printf("  failure screenshot: %s\n", path)
		}
	}
	fmt.Printf("→ Generating GIF (%d frames)... ", len(e.rec.Frames()))
	path, size, err := e.rec.WriteGIF(name)
	if err != nil {
		fmt.Println("failed")
		if runErr == nil {
			runErr = err
		}
		return runErr
	}
	fmt.Println("done")
	fmt.Printf("✓ Saved to %s (%.1f MB)\n", path, float64(size)/(1024*1024))
	return runErr
}
