// Package report provides JSON and HTML reporting with live updates.
//
// Layout of a report directory:
//   - report.json: the run, rewritten atomically after every step
//   - report.html: rendered from report.json
//   - assets/: the diagnostic captured at a hard failure
package report

import "time"

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the execution status of a step or of the run.
type Status string

// Status values.
const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
	StatusWarned  Status = "warned"
	StatusSkipped Status = "skipped"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusWarned, StatusSkipped:
		return true
	}
	return false
}

// Report is the content of report.json.
type Report struct {
	Version     string            `json:"version"`
	RunID       string            `json:"runId"`
	Title       string            `json:"title"`
	UpdateSeq   uint64            `json:"updateSeq"`
	Status      Status            `json:"status"`
	Outcome     string            `json:"outcome,omitempty"` // pass, fail, soft-pass once finished
	StartTime   time.Time         `json:"startTime"`
	EndTime     *time.Time        `json:"endTime,omitempty"`
	Duration    *int64            `json:"duration,omitempty"` // milliseconds
	LastUpdated time.Time         `json:"lastUpdated"`
	Flow        FlowInfo          `json:"flow"`
	Environment Environment       `json:"environment"`
	SystemInfo  map[string]string `json:"systemInfo,omitempty"`
	Summary     Summary           `json:"summary"`
	Steps       []Step            `json:"steps"`
	Diagnostic  string            `json:"diagnostic,omitempty"` // Path relative to the report directory
	Error       string            `json:"error,omitempty"`
}

// FlowInfo identifies the flow and the trip dates it ran with.
type FlowInfo struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	SourceFile string `json:"sourceFile,omitempty"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

// Environment describes where the run executed.
type Environment struct {
	RunnerVersion  string `json:"runnerVersion"`
	Driver         string `json:"driver"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browserVersion,omitempty"`
	UserAgent      string `json:"userAgent,omitempty"`
	Headless       bool   `json:"headless"`
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	Host           string `json:"host,omitempty"`
}

// Summary contains aggregated step counts.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Warned  int `json:"warned"`
	Skipped int `json:"skipped"`
	Running int `json:"running"`
	Pending int `json:"pending"`
}

// Step is the report entry of one flow step.
type Step struct {
	Index        int        `json:"index"`
	Name         string     `json:"name"`
	Action       string     `json:"action"`
	Selector     string     `json:"selector"`
	Locator      string     `json:"locator,omitempty"`
	Soft         bool       `json:"soft,omitempty"`
	Status       Status     `json:"status"`
	Category     string     `json:"errorCategory,omitempty"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	Duration     *int64     `json:"duration,omitempty"` // milliseconds
	Attempts     int        `json:"attempts"`
	UsedFallback bool       `json:"usedFallback,omitempty"`
	Message      string     `json:"message,omitempty"`
	Data         string     `json:"data,omitempty"`
	Error        string     `json:"error,omitempty"`
	Trace        []string   `json:"trace,omitempty"`
}
