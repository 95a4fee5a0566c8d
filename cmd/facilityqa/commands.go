package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/v0xg/facilityqa/internal/inspect"
	"github.com/v0xg/facilityqa/internal/page"
	"github.com/v0xg/facilityqa/internal/page/lab"
	"github.com/v0xg/facilityqa/internal/scenario"
	"github.com/v0xg/facilityqa/internal/stub"
)

func loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the laboratory server and wait for the home page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}

			login := lab.NewLoginPage(e.session)
			if username == "" {
				username = login.Username()
			}
			if password == "" {
				password = e.props.Lab.Password
			}

			fmt.Printf("→ Opening %s... ", lab.LoginPath)
			if err := page.Go(ctx, e.session, login); err != nil {
				fmt.Println("failed")
				return e.finish(ctx, "login", err)
			}
			fmt.Println("done")

			fmt.Printf("→ Logging in as %s... ", username)
			start := time.Now()
			home, err := login.LoginAs(ctx, username, password)
			if err != nil {
				fmt.Println("failed")
				return e.finish(ctx, "login", err)
			}
			fmt.Printf("done (%s)\n", time.Since(start).Round(time.Millisecond))
			fmt.Printf("✓ Home page %s ready\n", home.Descriptor().Path)
			return e.finish(ctx, "login", nil)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Override the configured lab username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Override the configured lab password")
	return cmd
}

// target is an ad hoc page object built from command-line flags.
type target struct {
	server page.Server
	desc   page.Descriptor
}

func (t target) Descriptor() page.Descriptor { return t.desc }
func (t target) Server() page.Server         { return t.server }

func parseTarget(server, path string) (target, error) {
	s, err := page.ParseServer(server)
	if err != nil {
		return target{}, err
	}
	return target{server: s, desc: page.Descriptor{Path: path}}, nil
}

func checkCmd() *cobra.Command {
	var alias, reject, indicator string
	cmd := &cobra.Command{
		Use:   "check <server> <path>",
		Short: "Open a page and wait until it is ready",
		Example: `  facilityqa check lab /HomePage.do --alias /Dashboard.do --reject /LoginPage.do
  facilityqa check emr /login.htm`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTarget(args[0], args[1])
			if err != nil {
				return err
			}
			t.desc.AliasPath = alias
			t.desc.RejectPath = reject
			t.desc.ReadyIndicator = indicator
			if err := t.desc.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("→ Waiting for %s %s... ", t.server, t.desc.Path)
			start := time.Now()
			if err := e.session.Open(ctx, t); err != nil {
				fmt.Println("failed")
				return e.finish(ctx, "check", err)
			}
			rejected, err := e.session.Rejected(ctx, t)
			if err != nil {
				fmt.Println("failed")
				return e.finish(ctx, "check", err)
			}
			if rejected {
				fmt.Println("rejected")
				url, _ := e.session.CurrentURL(ctx)
				return e.finish(ctx, "check", fmt.Errorf("redirected to %s", url))
			}
			fmt.Printf("done (%s)\n", time.Since(start).Round(time.Millisecond))
			return e.finish(ctx, "check", nil)
		},
	}
	cmd.Flags().StringVar(&alias, "alias", "", "Alternate path also accepted as arrival")
	cmd.Flags().StringVar(&reject, "reject", "", "Path that settles the wait as a rejection")
	cmd.Flags().StringVar(&indicator, "indicator", "", "Script variable that must be truthy")
	return cmd
}

func inspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <server> <path>",
		Short: "Suggest locators for the interactive elements of a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTarget(args[0], args[1])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("→ Inspecting %s %s... ", t.server, t.desc.Path)
			if err := e.session.Open(ctx, t); err != nil {
				fmt.Println("failed")
				return e.finish(ctx, "inspect", err)
			}
			report, err := inspect.Page(ctx, e.session)
			if err != nil {
				fmt.Println("failed")
				return e.finish(ctx, "inspect", err)
			}
			fmt.Printf("done (found %d interactive elements)\n", len(report.Elements))

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(report)
			} else {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				err = enc.Encode(report)
				if cerr := enc.Close(); err == nil {
					err = cerr
				}
			}
			return e.finish(ctx, "inspect", err)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON instead of YAML")
	return cmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run YAML smoke scenarios",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var scenarios []*scenario.Scenario
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, sc)
			}

			ctx, cancel := signalContext()
			defer cancel()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}

			var failed int
			for _, sc := range scenarios {
				fmt.Printf("→ %s\n", sc.Name)
				res, err := scenario.Run(ctx, e.session, sc)
				if res != nil {
					for _, st := range res.Steps {
						mark := "✓"
						if st.Err != nil {
							mark = "✗"
						}
						fmt.Printf("  [%d/%d] %s %s (%s)\n", st.Index+1, len(sc.Steps), mark, st.Step, st.Duration.Round(time.Millisecond))
					}
				}
				if err != nil {
					failed++
					fmt.Printf("  ✗ %v\n", err)
				}
			}

			var runErr error
			if failed > 0 {
				runErr = fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
			}
			return e.finish(ctx, "run", runErr)
		},
	}
}

func stubCmd() *cobra.Command {
	opts := stub.DefaultOptions()
	var addr string
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve a stub laboratory server for local runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			log := newLogger()
			defer log.Sync() //nolint:errcheck

			fmt.Printf("→ Serving stub lab on http://%s%s (login %s)\n", addr, opts.Prefix, opts.Username)
			if err := stub.New(opts, log).Serve(ctx, addr); err != nil {
				return err
			}
			fmt.Println("✓ Stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8089", "Listen address")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", opts.Prefix, "Path prefix of every page")
	cmd.Flags().StringVar(&opts.Username, "username", opts.Username, "Accepted username")
	cmd.Flags().StringVar(&opts.Password, "password", opts.Password, "Accepted password")
	cmd.Flags().DurationVar(&opts.ReadyDelay, "ready-delay", opts.ReadyDelay, "Delay before the home page indicator is set")
	cmd.Flags().StringVar(&opts.Indicator, "indicator", opts.Indicator, "Home page readiness variable")
	cmd.Flags().StringVar(&opts.Alert, "alert", "", "Show this alert on the home page")
	return cmd
}
