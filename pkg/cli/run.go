package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/wizard-runner/pkg/config"
	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/driver/chrome"
	"github.com/devicelab-dev/wizard-runner/pkg/driver/mock"
	"github.com/devicelab-dev/wizard-runner/pkg/driver/playwright"
	"github.com/devicelab-dev/wizard-runner/pkg/executor"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
	"github.com/devicelab-dev/wizard-runner/pkg/logger"
	"github.com/devicelab-dev/wizard-runner/pkg/report"
	"github.com/devicelab-dev/wizard-runner/pkg/validator"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run the wizard flow in a browser",
	Description: `Open a browser session, walk the wizard and write the report.

Reports are generated in the output directory:
  - Default: <home>/reports/<timestamp>/
  - With --output: <output>/<timestamp>/
  - With --output and --flatten: <output>/ (no timestamp subfolder)

Exit codes: 0 pass, 1 fail, --soft-pass-exit-code (default 2) when only
soft steps failed.

Examples:
  wizard-runner run
  wizard-runner run --url https://staging.example.test/travel-policy
  wizard-runner run --driver mock --output ./out --flatten
  wizard-runner run --date 2025-03-01`,
	Flags: []cli.Flag{
		// Configuration
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to config.yaml (default: ./config.yaml if present)",
		},
		&cli.StringFlag{
			Name:   "flow",
			Usage:  "Replay an exported flow YAML instead of the built-in flow",
			Hidden: true,
		},

		// Target
		&cli.StringFlag{
			Name:    "url",
			Usage:   "Override the flow's entry URL",
			EnvVars: []string{"WIZARD_URL"},
		},
		&cli.StringFlag{
			Name:    "driver",
			Aliases: []string{"d"},
			Usage:   "Browser driver (chromedp, playwright, mock)",
			EnvVars: []string{"WIZARD_DRIVER"},
		},
		&cli.BoolFlag{
			Name:    "headless",
			Usage:   "Run the browser without a window",
			EnvVars: []string{"WIZARD_HEADLESS", "CI"},
		},
		&cli.BoolFlag{
			Name:  "install-browser",
			Usage: "Download the Playwright browser before the run (playwright only)",
		},

		// Output directory
		&cli.StringFlag{
			Name:    "output",
			Usage:   "Output directory for reports",
			EnvVars: []string{"WIZARD_OUTPUT"},
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder (requires --output)",
		},

		// Execution
		&cli.StringFlag{
			Name:  "date",
			Usage: "Trip start date YYYY-MM-DD (default: today)",
		},
		&cli.IntFlag{
			Name:  "soft-pass-exit-code",
			Usage: "Exit code when only soft steps failed",
		},
	},
	Action: runFlow,
}

// RunConfig holds the fully resolved settings of one run.
type RunConfig struct {
	Config         *config.Config
	Flow           flow.Flow
	OutputDir      string    // Final resolved output directory
	ReferenceDate  time.Time // Zero = today
	InstallBrowser bool
	Verbose        bool
	Color          bool
}

func runFlow(c *cli.Context) error {
	cfg, err := buildRunConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return executeRun(c.Context, cfg, newConsole(c.App.Writer, cfg.Color))
}

// buildRunConfig merges config file, flags and environment. Flags win.
func buildRunConfig(c *cli.Context) (*RunConfig, error) {
	var ws *config.Config
	var err error
	if path := c.String("config"); path != "" {
		ws, err = config.Load(path)
	} else {
		ws, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("url") {
		ws.URL = c.String("url")
	}
	if c.IsSet("driver") {
		ws.Driver = c.String("driver")
	}
	if c.IsSet("headless") {
		ws.Headless = c.Bool("headless")
	}
	if c.IsSet("output") {
		ws.Output = c.String("output")
	}
	if c.IsSet("soft-pass-exit-code") {
		ws.SoftPassExitCode = c.Int("soft-pass-exit-code")
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}

	f := flow.TravelInsurance()
	if path := c.String("flow"); path != "" {
		parsed, err := flow.ParseFile(path)
		if err != nil {
			return nil, err
		}
		f = *parsed
	}
	f = f.WithURL(ws.URL)

	ref, err := parseDate(c.String("date"))
	if err != nil {
		return nil, err
	}

	outputDir, err := resolveOutputDir(ws, c.IsSet("output"), c.Bool("flatten"))
	if err != nil {
		return nil, err
	}

	return &RunConfig{
		Config:         ws,
		Flow:           f,
		OutputDir:      outputDir,
		ReferenceDate:  ref,
		InstallBrowser: c.Bool("install-browser"),
		Verbose:        c.Bool("verbose"),
		Color:          !c.Bool("no-color"),
	}, nil
}

// parseDate parses a YYYY-MM-DD reference date in local time. "" = today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(flow.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// resolveOutputDir determines the output directory.
// - No output configured: <home>/reports/<timestamp>/
// - Output configured: <output>/<timestamp>/
// - Output + --flatten: <output>/ (error if no output was given)
func resolveOutputDir(ws *config.Config, outputFlag, flatten bool) (string, error) {
	if flatten && !outputFlag && ws.Output == "" {
		return "", fmt.Errorf("--flatten requires --output to be specified")
	}

	baseDir := ws.OutputDir()
	if flatten {
		return filepath.Clean(baseDir), nil
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(baseDir, timestamp), nil
}

// openerFor returns the session factory for the configured driver.
func openerFor(cfg *RunConfig) (core.Opener, error) {
	ws := cfg.Config
	switch ws.Driver {
	case config.DriverChromedp:
		return chrome.Opener(chrome.Config{
			Headless:     ws.Headless,
			ExecPath:     ws.Browser.ExecPath,
			WindowWidth:  ws.Browser.WindowWidth,
			WindowHeight: ws.Browser.WindowHeight,
			NoSandbox:    ws.Browser.NoSandbox,
		}), nil
	case config.DriverPlaywright:
		return playwright.Opener(playwright.Config{
			Headless:     ws.Headless,
			ExecPath:     ws.Browser.ExecPath,
			WindowWidth:  ws.Browser.WindowWidth,
			WindowHeight: ws.Browser.WindowHeight,
			NoSandbox:    ws.Browser.NoSandbox,
			Install:      cfg.InstallBrowser,
		}), nil
	case config.DriverMock:
		today := cfg.ReferenceDate
		return func(ctx context.Context) (core.Driver, error) {
			return mock.NewTravelWizard(mock.WizardOptions{Today: today}), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", ws.Driver)
	}
}

func executeRun(parent context.Context, cfg *RunConfig, out *console) error {
	// 1. Validate the flow before touching the browser
	if res := validator.New(true).Validate(cfg.Flow); !res.IsValid() {
		return cli.Exit(fmt.Sprintf("invalid flow %q:\n%s", cfg.Flow.Name, res.Error()), 1)
	}

	// 2. Create output directory
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return cli.Exit(fmt.Sprintf("failed to create output directory: %v", err), 1)
	}

	// 3. Initialize logging
	logPath := filepath.Join(cfg.OutputDir, "wizard-runner.log")
	if err := logger.Init(logPath, cfg.Verbose); err != nil {
		out.printf("Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	ws := cfg.Config
	logger.Info("=== Run started ===")
	logger.Info("Output directory: %s", cfg.OutputDir)
	logger.Info("Driver: %s (headless=%t)", ws.Driver, ws.Headless)
	logger.Info("URL: %s", cfg.Flow.URL)

	open, err := openerFor(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ref := cfg.ReferenceDate
	if ref.IsZero() {
		ref = time.Now()
	}
	dr := flow.NewDateRange(ref)

	rep := report.BuildSkeleton(cfg.Flow, dr, report.BuilderConfig{
		Title:         ws.Report.Title,
		RunnerVersion: Version,
		DriverName:    ws.Driver,
		Headless:      ws.Headless,
		SystemInfo:    ws.Report.SystemInfo,
	})
	rec := report.NewRecorder(cfg.OutputDir, rep, report.HTMLConfig{
		Title:       ws.Report.Title,
		EmbedAssets: ws.Report.EmbedAssets,
	})

	runner := executor.New(open, executor.RunnerConfig{
		ReferenceDate:   ref,
		PollInterval:    ws.PollInterval,
		FallbackTimeout: ws.FallbackTimeout,
		Logger:          logger.L(),
		OnFlowStart: func(f flow.Flow, dr flow.DateRange) {
			out.flowStart(f, dr, ws.Driver)
			rec.Start(dr)
		},
		OnStepStart: func(idx, total int, step *flow.Step) {
			logger.Debug("step %d/%d %s: %s", idx+1, total, step.Name, step.Describe())
			rec.StepStart(idx)
		},
		OnStepComplete: func(idx int, res core.StepResult) {
			out.stepDone(res)
			rec.StepEnd(res)
		},
	})

	out.banner()
	result, runErr := runner.Run(ctx, cfg.Flow)
	if runErr != nil {
		logger.Error("run aborted: %v", runErr)
		result = abortedResult(cfg.Flow, dr, runErr)
	}

	if err := rec.End(result); err != nil {
		logger.Error("write report: %v", err)
		out.printf("Warning: failed to write report: %v\n", err)
	}
	out.summary(result, cfg.OutputDir)
	logger.Info("=== Run finished: %s ===", result.Outcome)

	return exitFor(result.Outcome, ws.SoftPassExitCode)
}

// abortedResult stands in for a run that produced no result, e.g. when the
// browser could not be launched.
func abortedResult(f flow.Flow, dr flow.DateRange, err error) *core.FlowResult {
	now := time.Now()
	res := &core.FlowResult{
		Name:      f.Name,
		URL:       f.URL,
		StartTime: now,
		Error:     err.Error(),
		Steps:     make([]core.StepResult, len(f.Steps)),
	}
	res.SetRange(dr)
	for i := range f.Steps {
		res.Steps[i] = core.StepResult{
			Name:     f.Steps[i].Name,
			Index:    i,
			Action:   f.Steps[i].Action.Describe(),
			Selector: f.Steps[i].Selector.DescribeQuoted(),
			Status:   core.StatusSkipped,
			Soft:     f.Steps[i].IsOptional(),
		}
	}
	res.Finish(now)
	return res
}

// exitFor maps the outcome onto the process exit code.
func exitFor(outcome core.Outcome, softPassCode int) error {
	switch outcome {
	case core.OutcomePass:
		return nil
	case core.OutcomeSoftPass:
		if softPassCode == 0 {
			return nil
		}
		return cli.Exit("", softPassCode)
	default:
		return cli.Exit("", 1)
	}
}
