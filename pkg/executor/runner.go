// Package executor drives a flow through a browser session: it waits for
// elements, performs actions with fallbacks and aggregates the outcome.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// ErrRunnerBusy is returned when Run is called while another run is active.
var ErrRunnerBusy = errors.New("runner: a run is already in progress")

// RunnerConfig configures the runner.
type RunnerConfig struct {
	// Clock supplies the run's reference date and timestamps. Defaults to time.Now.
	Clock func() time.Time
	// ReferenceDate overrides the clock for the DateRange when non-zero.
	ReferenceDate time.Time

	PollInterval    time.Duration // WaitPolicy interval (0 = DefaultPollInterval)
	FallbackTimeout time.Duration // Default fallback wait (0 = DefaultFallbackTimeout)

	// Diagnostics builds the capture for a session. Defaults to a screenshot.
	Diagnostics func(core.Driver) core.DiagnosticsCapture

	Logger *zap.Logger

	// Live progress callbacks
	OnFlowStart    func(f flow.Flow, dr flow.DateRange)
	OnStepStart    func(idx, total int, step *flow.Step)
	OnStepComplete func(idx int, result core.StepResult)
	OnFlowEnd      func(result *core.FlowResult)
}

func (c RunnerConfig) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// Runner owns one browser session per run: it opens the session, runs the
// flow and releases the session exactly once on every exit path.
type Runner struct {
	open   core.Opener
	config RunnerConfig
	busy   atomic.Bool
}

// New creates a new Runner.
func New(open core.Opener, cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{
		open:   open,
		config: cfg,
	}
}

// Run executes f in a fresh session and returns the flow result.
// An error is returned only when no result could be produced: the runner is
// busy, the session could not be opened, or the run panicked.
func (r *Runner) Run(ctx context.Context, f flow.Flow) (result *core.FlowResult, err error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrRunnerBusy
	}
	defer r.busy.Store(false)

	ref := r.config.ReferenceDate
	if ref.IsZero() {
		ref = r.config.now()
	}
	dr := flow.NewDateRange(ref)
	log := r.config.Logger.With(zap.String("flow", f.Name), zap.Stringer("dates", dr))

	driver, err := r.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if qerr := driver.Quit(); qerr != nil {
			log.Warn("quit browser session", zap.Error(qerr))
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			log.Error("run panicked", zap.Any("panic", p))
			result, err = nil, fmt.Errorf("run panicked: %v", p)
		}
	}()

	diag := core.DiagnosticsCapture(core.ScreenshotCapture{Driver: driver})
	if r.config.Diagnostics != nil {
		diag = r.config.Diagnostics(driver)
	}

	steps := NewStepExecutor(driver, dr, r.config.PollInterval, log)
	steps.FallbackTimeout = r.config.FallbackTimeout

	fr := &FlowRunner{
		driver:      driver,
		steps:       steps,
		diagnostics: diag,
		config:      r.config,
		logger:      log,
	}

	log.Info("run started", zap.String("url", f.URL), zap.Int("steps", len(f.Steps)))
	result = fr.Run(ctx, f, dr)
	log.Info("run finished",
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("duration", result.Duration))
	return result, nil
}
