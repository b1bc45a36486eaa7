// Package main provides the cookiescope server and one-shot probe CLI.
// Without -url it serves the cookie endpoint over HTTP; with -url it fetches
// a single target and prints the cookies it received.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/entrhq/cookiescope/pkg/browser"
	"github.com/entrhq/cookiescope/pkg/config"
	"github.com/entrhq/cookiescope/pkg/fetch"
	"github.com/entrhq/cookiescope/pkg/logging"
	"github.com/entrhq/cookiescope/pkg/report"
	"github.com/entrhq/cookiescope/pkg/server"
	"github.com/entrhq/cookiescope/pkg/target"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	Addr        string
	Verbosity   string
	URL         string
	Browser     bool
	JSON        bool
	Copy        bool
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("cookiescope v%s\n", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code, err := run(ctx, cli)
	stop()
	if err != nil {
		log.Printf("cookiescope: %v", err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", os.Getenv("COOKIESCOPE_CONFIG"), "Path to configuration file (YAML)")
	flag.StringVar(&cli.Addr, "addr", "", "Listen address (overrides config; PORT is honored when unset)")
	flag.StringVar(&cli.Verbosity, "verbosity", "", "Log verbosity: quiet, normal, verbose or debug")
	flag.StringVar(&cli.URL, "url", "", "Fetch this URL once and print its cookies instead of serving")
	flag.BoolVar(&cli.Browser, "browser", false, "Use the headless browser for -url")
	flag.BoolVar(&cli.JSON, "json", false, "Print the -url result as JSON")
	flag.BoolVar(&cli.Copy, "copy", false, "Copy a Cookie header built from the -url result to the clipboard")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cookiescope - remote cookie retrieval\n\n")
		fmt.Fprintf(os.Stderr, "Usage: cookiescope [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Serve the endpoint\n")
		fmt.Fprintf(os.Stderr, "  cookiescope -config cookiescope.yaml\n\n")
		fmt.Fprintf(os.Stderr, "  # Probe a site once\n")
		fmt.Fprintf(os.Stderr, "  cookiescope -url https://example.com\n\n")
		fmt.Fprintf(os.Stderr, "  # Probe through the browser and print JSON\n")
		fmt.Fprintf(os.Stderr, "  cookiescope -url https://example.com -browser -json\n\n")
	}

	flag.Parse()
	return cli
}

// run wires the components and either serves or probes. It returns the
// process exit code.
func run(ctx context.Context, cli *CLIConfig) (int, error) {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return 2, err
	}
	applyOverrides(cfg, cli)
	if err := cfg.Validate(); err != nil {
		return 2, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Logging)
	defer logger.Close()

	policy, err := target.NewPolicy(cfg.Targets.AllowedHosts, cfg.Targets.DeniedHosts)
	if err != nil {
		return 2, fmt.Errorf("failed to build target policy: %w", err)
	}

	svcOpts := fetch.ServiceOptions{
		Policy: policy,
		HTTP: fetch.HTTPOptions{
			Timeout:      cfg.HTTP.Timeout,
			MaxRedirects: cfg.HTTP.MaxRedirects,
			UserAgent:    cfg.HTTP.UserAgent,
		},
		Logger: logger.Named("fetch"),
	}

	var launcher *browser.PlaywrightLauncher
	if cfg.Browser.Enabled {
		launcher = browser.NewPlaywrightLauncher(logger.Named("browser"))
		if cfg.Browser.SkipInstall {
			launcher.SkipInstall()
		}
		defer func() {
			if err := launcher.Shutdown(); err != nil {
				logger.Warnf("failed to stop browser driver: %v", err)
			}
		}()

		browserOpts := browser.Options{
			Headless:          cfg.Browser.Headless,
			UserAgent:         cfg.Browser.UserAgent,
			LaunchTimeout:     cfg.Browser.LaunchTimeout,
			NavigationTimeout: cfg.Browser.NavigationTimeout,
		}
		svcOpts.NewBrowser = func() (fetch.BrowserFetcher, error) {
			return browser.NewFetcher(launcher, browserOpts, logger.Named("browser")), nil
		}
	}

	svc := fetch.NewService(svcOpts)

	if cli.URL != "" {
		return probe(ctx, svc, cli)
	}

	handler := server.NewHandler(svc, server.HandlerOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger.Named("server"),
	})
	logger.Infof("cookiescope v%s starting (browser mode enabled: %t)", version, cfg.Browser.Enabled)
	if err := server.New(cfg.Server, handler, logger.Named("server")).Run(ctx); err != nil {
		return 1, err
	}
	return 0, nil
}

// applyOverrides layers flags and environment over the loaded file
func applyOverrides(cfg *config.Config, cli *CLIConfig) {
	if cli.Addr != "" {
		cfg.Server.Addr = cli.Addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if cli.Verbosity != "" {
		cfg.Logging.Verbosity = cli.Verbosity
	}
	// A probe reports its outcome on stdout; logs stay quiet unless asked for
	if cli.URL != "" && cli.Verbosity == "" {
		cfg.Logging.Verbosity = "quiet"
	}
}

func newLogger(cfg config.LoggingConfig) *logging.Logger {
	var logger *logging.Logger
	if cfg.File {
		if cfg.Dir != "" {
			logging.SetLogDirectory(cfg.Dir)
		}
		// On failure NewLogger already falls back to stderr
		logger, _ = logging.NewLogger("cookiescope")
	} else {
		logger = logging.NewWriterLogger("cookiescope", os.Stderr)
	}
	logger.SetLevel(logging.ParseLevel(cfg.Verbosity))
	return logger
}

// probe fetches cli.URL once and prints the result
func probe(ctx context.Context, svc *fetch.Service, cli *CLIConfig) (int, error) {
	req := fetch.Request{URL: cli.URL, Mode: fetch.ModeHTTP}
	if cli.Browser {
		req.Mode = fetch.ModeBrowser
	}

	res := svc.Fetch(ctx, req)

	if cli.JSON {
		color := isatty.IsTerminal(os.Stdout.Fd())
		if err := report.WriteJSON(os.Stdout, res, color); err != nil {
			return 1, err
		}
	} else {
		fmt.Print(report.Render(res))
	}

	if !res.OK {
		return 1, nil
	}

	if cli.Copy {
		header, err := report.CopyCookieHeader(res)
		if err != nil {
			return 1, err
		}
		fmt.Fprintf(os.Stderr, "copied %d bytes to clipboard\n", len(header))
	}
	return 0, nil
}
