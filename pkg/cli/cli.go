// Package cli provides the command-line interface for wizard-runner.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable debug logging",
		EnvVars: []string{"WIZARD_VERBOSE"},
	},
	&cli.StringFlag{
		Name:  "env-file",
		Usage: "Load environment variables from this file (default: .env if present)",
	},
	&cli.BoolFlag{
		Name:    "no-color",
		Usage:   "Disable ANSI colors",
		EnvVars: []string{"NO_COLOR"},
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "wizard-runner",
		Usage:   "Drive the travel insurance wizard end to end in a real browser",
		Version: Version,
		Description: `wizard-runner walks a multi-step web wizard, waiting for each element,
falling back to script dispatch when native interaction is blocked, and
writes a JSON + HTML report with a screenshot of the first hard failure.

Examples:
  wizard-runner run
  wizard-runner run --headless --output ./out --flatten
  wizard-runner run --driver playwright --date 2025-03-01
  wizard-runner flow --date 2025-03-01`,
		Flags:  GlobalFlags,
		Before: loadEnv,
		Commands: []*cli.Command{
			runCommand,
			flowCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnv reads the env file before subcommand flags resolve their EnvVars.
// An explicit --env-file must exist; the implicit .env is optional.
func loadEnv(c *cli.Context) error {
	if path := c.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
