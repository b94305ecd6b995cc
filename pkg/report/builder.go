package report

import (
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// BuilderConfig contains configuration for building the report skeleton.
type BuilderConfig struct {
	Title         string            // Report title
	RunnerVersion string            // wizard-runner version
	DriverName    string            // chromedp, playwright, mock
	Headless      bool              // Browser launched without a window
	SystemInfo    map[string]string // Extra environment rows
}

// BuildSkeleton creates the initial report for a flow.
// All steps are set to "pending" with their locators resolved against dr.
// This should be called after validation, before execution starts.
func BuildSkeleton(f flow.Flow, dr flow.DateRange, cfg BuilderConfig) *Report {
	now := time.Now()
	host, _ := os.Hostname()

	rep := &Report{
		Version:     Version,
		RunID:       uuid.NewString(),
		Title:       cfg.Title,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Flow: FlowInfo{
			Name:       f.Name,
			URL:        f.URL,
			SourceFile: f.SourcePath,
			StartDate:  dr.Date(flow.AnchorStart),
			EndDate:    dr.Date(flow.AnchorEnd),
		},
		Environment: Environment{
			RunnerVersion: cfg.RunnerVersion,
			Driver:        cfg.DriverName,
			Headless:      cfg.Headless,
			OS:            runtime.GOOS,
			Arch:          runtime.GOARCH,
			Host:          host,
		},
		SystemInfo: cfg.SystemInfo,
		Steps:      buildSteps(f.Steps, dr),
	}
	rep.Summary = computeSummary(rep.Steps)
	return rep
}

func buildSteps(steps []flow.Step, dr flow.DateRange) []Step {
	out := make([]Step, len(steps))
	for i := range steps {
		s := &steps[i]
		out[i] = Step{
			Index:    i,
			Name:     s.Name,
			Action:   s.Action.Describe(),
			Selector: s.Selector.Describe(),
			Locator:  s.Selector.Expand(dr.Date(s.Selector.Anchor)).String(),
			Soft:     s.IsOptional(),
			Status:   StatusPending,
		}
	}
	return out
}

// FromStepStatus maps an executor status onto a report status.
func FromStepStatus(s core.StepStatus) Status {
	switch s {
	case core.StatusRunning:
		return StatusRunning
	case core.StatusPassed:
		return StatusPassed
	case core.StatusFailed:
		return StatusFailed
	case core.StatusErrored:
		return StatusErrored
	case core.StatusWarned:
		return StatusWarned
	case core.StatusSkipped:
		return StatusSkipped
	default:
		return StatusPending
	}
}

// applyStep copies an executor result into the matching entry.
func (r *Report) applyStep(res core.StepResult) {
	if res.Index < 0 || res.Index >= len(r.Steps) {
		return
	}
	step := &r.Steps[res.Index]
	step.Status = FromStepStatus(res.Status)
	if res.Locator != "" {
		step.Locator = res.Locator
	}
	if res.Category != core.ErrCategoryNone {
		step.Category = res.Category.String()
	}
	if !res.StartTime.IsZero() {
		start := res.StartTime
		step.StartTime = &start
		ms := res.Duration.Milliseconds()
		step.Duration = &ms
	}
	step.Attempts = res.Attempts
	step.UsedFallback = res.UsedFallback
	step.Message = res.Message
	step.Data = res.Data
	step.Error = res.Error
	step.Trace = res.Trace
}

// applyFlow records the final flow result.
func (r *Report) applyFlow(res *core.FlowResult) {
	for _, s := range res.Steps {
		r.applyStep(s)
	}

	r.Outcome = string(res.Outcome)
	r.Status = FromStepStatus(res.Status)
	r.Error = res.Error
	r.Flow.StartDate = res.StartDate
	r.Flow.EndDate = res.EndDate
	if !res.StartTime.IsZero() {
		r.StartTime = res.StartTime
	}
	end := res.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	r.EndTime = &end
	ms := end.Sub(r.StartTime).Milliseconds()
	r.Duration = &ms

	if p := res.PlatformInfo; p != nil {
		if p.Driver != "" {
			r.Environment.Driver = p.Driver
		}
		r.Environment.Browser = p.Browser
		r.Environment.BrowserVersion = p.Version
		r.Environment.UserAgent = p.UserAgent
		r.Environment.Headless = p.Headless
	}
}

func computeSummary(steps []Step) Summary {
	s := Summary{Total: len(steps)}
	for _, step := range steps {
		switch step.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed, StatusErrored:
			s.Failed++
		case StatusWarned:
			s.Warned++
		case StatusSkipped:
			s.Skipped++
		case StatusRunning:
			s.Running++
		case StatusPending:
			s.Pending++
		}
	}
	return s
}
