package core

import (
	"time"

	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// Outcome is the terminal classification of a flow run
type Outcome string

const (
	OutcomePass     Outcome = "pass"
	OutcomeFail     Outcome = "fail"
	OutcomeSoftPass Outcome = "soft-pass" // Completed with at least one soft failure
)

// StepResult captures the complete outcome of executing a single step
type StepResult struct {
	// Identity
	Name     string `json:"name"`
	Index    int    `json:"index"`    // 0-based position in flow
	Action   string `json:"action"`   // e.g. "click (native)"
	Selector string `json:"selector"` // Selector description
	Locator  string `json:"locator,omitempty"`

	// Status
	Status   StepStatus    `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`
	Soft     bool          `json:"soft,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Output
	Message string `json:"message,omitempty"` // Human-readable explanation
	Data    string `json:"data,omitempty"`    // Value read by readText/readAttribute

	// Error Details
	Error string `json:"error,omitempty"` // Technical error message
	Err   error  `json:"-"`

	// Strategy tracking
	Attempts     int      `json:"attempts"`               // Actions performed (primary + fallback)
	UsedFallback bool     `json:"usedFallback,omitempty"` // Succeeded or failed on the fallback path
	Trace        []string `json:"trace,omitempty"`        // Executor states visited
}

// FlowResult captures the complete outcome of executing a flow
type FlowResult struct {
	// Identity
	Name string `json:"name"`
	URL  string `json:"url"`

	// Platform info (captured once per flow)
	PlatformInfo *PlatformInfo `json:"platformInfo,omitempty"`

	// Outcome (aggregated from steps)
	Outcome Outcome    `json:"outcome"`
	Status  StepStatus `json:"status"`

	// Date range the dynamic locators were resolved against
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Steps      []StepResult `json:"steps"`
	Diagnostic *Attachment  `json:"diagnostic,omitempty"` // Captured at the hard failure

	// Summary (computed)
	TotalSteps   int `json:"totalSteps"`
	PassedSteps  int `json:"passedSteps"`
	FailedSteps  int `json:"failedSteps"`
	SkippedSteps int `json:"skippedSteps"`
	WarnedSteps  int `json:"warnedSteps"`

	// Error info (if flow failed)
	Error string `json:"error,omitempty"`
}

// SetRange records the date range of the run
func (f *FlowResult) SetRange(r flow.DateRange) {
	f.StartDate = r.Date(flow.AnchorStart)
	f.EndDate = r.Date(flow.AnchorEnd)
}

// ComputeSummary calculates step counts from the Steps slice
func (f *FlowResult) ComputeSummary() {
	f.TotalSteps = len(f.Steps)
	f.PassedSteps = 0
	f.FailedSteps = 0
	f.SkippedSteps = 0
	f.WarnedSteps = 0

	for _, step := range f.Steps {
		switch step.Status {
		case StatusPassed:
			f.PassedSteps++
		case StatusFailed, StatusErrored:
			f.FailedSteps++
		case StatusSkipped:
			f.SkippedSteps++
		case StatusWarned:
			f.WarnedSteps++
		}
	}
}

// hasFailure checks if any step in the slice has failed or errored
func hasFailure(steps []StepResult) bool {
	for _, step := range steps {
		if step.Status == StatusFailed || step.Status == StatusErrored {
			return true
		}
	}
	return false
}

// hasWarning checks if any step in the slice has warned status
func hasWarning(steps []StepResult) bool {
	for _, step := range steps {
		if step.Status == StatusWarned {
			return true
		}
	}
	return false
}

// AggregateOutcome determines the flow outcome from step results
// Rules:
// - Any failed/errored step → OutcomeFail
// - Any step not run to a terminal state → OutcomeFail
// - All passed with at least one warned → OutcomeSoftPass
// - All passed → OutcomePass
func (f *FlowResult) AggregateOutcome() Outcome {
	if f.Error != "" || hasFailure(f.Steps) {
		return OutcomeFail
	}
	for _, step := range f.Steps {
		if !step.Status.IsSuccess() {
			return OutcomeFail
		}
	}
	if hasWarning(f.Steps) {
		return OutcomeSoftPass
	}
	return OutcomePass
}

// AggregateStatus maps the outcome onto a step status for status-only consumers
func (f *FlowResult) AggregateStatus() StepStatus {
	switch f.AggregateOutcome() {
	case OutcomePass:
		return StatusPassed
	case OutcomeSoftPass:
		return StatusWarned
	default:
		if f.Error != "" && hasErrored(f.Steps) {
			return StatusErrored
		}
		return StatusFailed
	}
}

func hasErrored(steps []StepResult) bool {
	for _, step := range steps {
		if step.Status == StatusErrored {
			return true
		}
	}
	return false
}

// Finish stamps the end time and computes summary and outcome
func (f *FlowResult) Finish(end time.Time) {
	f.EndTime = end
	f.Duration = end.Sub(f.StartTime)
	f.ComputeSummary()
	f.Outcome = f.AggregateOutcome()
	f.Status = f.AggregateStatus()
}
