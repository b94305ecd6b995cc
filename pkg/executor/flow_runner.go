package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// FlowRunner executes a single flow against one driver session.
type FlowRunner struct {
	driver      core.Driver
	steps       *StepExecutor
	diagnostics core.DiagnosticsCapture
	config      RunnerConfig
	logger      *zap.Logger
}

// Run navigates to the flow URL and executes steps strictly in order.
//
// The first hard failure stops the flow: diagnostics are captured once and
// the remaining steps are marked skipped. Soft failures are recorded and the
// flow continues. A driver fault stops the flow without capture.
func (fr *FlowRunner) Run(ctx context.Context, f flow.Flow, dr flow.DateRange) *core.FlowResult {
	result := &core.FlowResult{
		Name:      f.Name,
		URL:       f.URL,
		StartTime: fr.config.now(),
		Steps:     make([]core.StepResult, 0, len(f.Steps)),
	}
	result.SetRange(dr)
	if d, ok := fr.driver.(core.Describer); ok {
		info := d.PlatformInfo()
		result.PlatformInfo = &info
	}

	if fr.config.OnFlowStart != nil {
		fr.config.OnFlowStart(f, dr)
	}

	stopped := -1
	if err := fr.driver.Navigate(ctx, f.URL); err != nil {
		fr.logger.Error("navigation failed", zap.String("url", f.URL), zap.Error(err))
		result.Error = fmt.Sprintf("navigate to %s: %v", f.URL, err)
		if !abort(ctx, err) {
			fr.captureDiagnostics(ctx, result)
		}
		stopped = 0
	}

	for i := 0; stopped < 0 && i < len(f.Steps); i++ {
		step := &f.Steps[i]
		if fr.config.OnStepStart != nil {
			fr.config.OnStepStart(i, len(f.Steps), step)
		}

		sr := fr.executeStep(ctx, i, step)
		result.Steps = append(result.Steps, sr)

		if fr.config.OnStepComplete != nil {
			fr.config.OnStepComplete(i, sr)
		}

		switch sr.Status {
		case core.StatusFailed:
			// Hard failure: capture once, stop.
			result.Error = fmt.Sprintf("step %s: %s", sr.Name, sr.Error)
			fr.captureDiagnostics(ctx, result)
			stopped = i + 1
		case core.StatusErrored:
			result.Error = fmt.Sprintf("step %s: %s", sr.Name, sr.Error)
			stopped = i + 1
		}
	}

	if stopped >= 0 {
		for j := stopped; j < len(f.Steps); j++ {
			result.Steps = append(result.Steps, core.StepResult{
				Name:     f.Steps[j].Name,
				Index:    j,
				Action:   f.Steps[j].Action.Describe(),
				Selector: f.Steps[j].Selector.DescribeQuoted(),
				Soft:     f.Steps[j].IsOptional(),
				Status:   core.StatusSkipped,
				Message:  "not attempted",
			})
		}
	}

	result.Finish(fr.config.now())

	if fr.config.OnFlowEnd != nil {
		fr.config.OnFlowEnd(result)
	}
	return result
}

// executeStep runs one step; a panic inside it becomes a hard failure.
func (fr *FlowRunner) executeStep(ctx context.Context, idx int, step *flow.Step) (sr core.StepResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			fr.logger.Error("panic in step", zap.String("step", step.Name), zap.Any("panic", p))
			sr = core.StepResult{
				Name:      step.Name,
				Index:     idx,
				Action:    step.Action.Describe(),
				Selector:  step.Selector.DescribeQuoted(),
				Status:    core.StatusFailed,
				Category:  core.ErrCategoryDriver,
				Error:     fmt.Sprintf("panic: %v", p),
				Message:   fmt.Sprintf("panic: %v", p),
				StartTime: start,
				Duration:  time.Since(start),
				Trace:     []string{string(StateFailed)},
			}
		}
	}()
	return fr.steps.Execute(ctx, idx, step)
}

func (fr *FlowRunner) captureDiagnostics(ctx context.Context, result *core.FlowResult) {
	if fr.diagnostics == nil {
		return
	}
	a, err := fr.diagnostics.Capture(ctx)
	if err != nil {
		fr.logger.Warn("diagnostics capture failed", zap.Error(err))
		return
	}
	result.Diagnostic = a
}
