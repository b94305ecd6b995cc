// Package config handles configuration for wizard-runner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported drivers.
const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
	DriverMock       = "mock"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// Target
	URL    string `yaml:"url"`    // Overrides the flow's entry URL
	Driver string `yaml:"driver"` // chromedp | playwright | mock

	// Browser settings
	Headless bool    `yaml:"headless"`
	Browser  Browser `yaml:"browser"`

	// Execution settings
	PollInterval    time.Duration `yaml:"pollInterval"`
	FallbackTimeout time.Duration `yaml:"fallbackTimeout"`

	// Output
	Output           string `yaml:"output"`           // Reports directory
	SoftPassExitCode int    `yaml:"softPassExitCode"` // Exit code of a soft-pass run
	Report           Report `yaml:"report"`
}

// Browser holds launch options shared by the real drivers.
type Browser struct {
	ExecPath     string `yaml:"execPath"`
	WindowWidth  int    `yaml:"windowWidth"`
	WindowHeight int    `yaml:"windowHeight"`
	NoSandbox    bool   `yaml:"noSandbox"`
}

// Report configures the HTML/JSON report.
type Report struct {
	Title       string            `yaml:"title"`
	EmbedAssets bool              `yaml:"embedAssets"` // Inline the diagnostic screenshot in the HTML
	SystemInfo  map[string]string `yaml:"systemInfo"`  // Extra rows for the environment table
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Driver: DriverChromedp,
		Browser: Browser{
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		PollInterval:     250 * time.Millisecond,
		FallbackTimeout:  5 * time.Second,
		SoftPassExitCode: 2,
		Report: Report{
			Title:       "Travel Insurance Wizard",
			EmbedAssets: true,
		},
	}
}

// Load loads configuration from a file. Unset keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults
	return Default(), nil
}

// Validate checks values a run cannot start with.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverChromedp, DriverPlaywright, DriverMock:
	default:
		return fmt.Errorf("unknown driver %q (want %s, %s or %s)", c.Driver, DriverChromedp, DriverPlaywright, DriverMock)
	}
	if c.PollInterval < 0 || c.FallbackTimeout < 0 {
		return fmt.Errorf("pollInterval and fallbackTimeout must not be negative")
	}
	if c.SoftPassExitCode < 0 || c.SoftPassExitCode > 125 {
		return fmt.Errorf("softPassExitCode %d out of range 0-125", c.SoftPassExitCode)
	}
	return nil
}

// OutputDir returns the configured reports directory, or <home>/reports.
func (c *Config) OutputDir() string {
	if c.Output != "" {
		return c.Output
	}
	return GetReportsDir()
}
