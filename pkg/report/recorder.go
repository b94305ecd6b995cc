package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
	"github.com/devicelab-dev/wizard-runner/pkg/logger"
)

// File names inside a report directory.
const (
	ReportFile = "report.json"
	HTMLFile   = "report.html"
	AssetsDir  = "assets"
)

// Recorder keeps report.json current while a flow runs.
// Each update is written atomically so a reader never sees a partial file.
type Recorder struct {
	mu        sync.Mutex
	outputDir string
	path      string
	report    *Report
	html      HTMLConfig
}

// NewRecorder creates a Recorder writing into outputDir.
func NewRecorder(outputDir string, rep *Report, html HTMLConfig) *Recorder {
	html.ReportDir = outputDir
	if html.Title == "" {
		html.Title = rep.Title
	}
	return &Recorder{
		outputDir: outputDir,
		path:      filepath.Join(outputDir, ReportFile),
		report:    rep,
		html:      html,
	}
}

// Start marks the run as started.
func (w *Recorder) Start(dr flow.DateRange) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.report.Status = StatusRunning
	w.report.StartTime = time.Now()
	w.report.Flow.StartDate = dr.Date(flow.AnchorStart)
	w.report.Flow.EndDate = dr.Date(flow.AnchorEnd)
	w.flushLocked()
}

// StepStart marks a step as running.
func (w *Recorder) StepStart(idx int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if idx < 0 || idx >= len(w.report.Steps) {
		return
	}
	now := time.Now()
	w.report.Steps[idx].Status = StatusRunning
	w.report.Steps[idx].StartTime = &now
	w.flushLocked()
}

// StepEnd records a finished step.
func (w *Recorder) StepEnd(res core.StepResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.report.applyStep(res)
	w.flushLocked()
}

// End records the flow result, saves its diagnostic and renders the HTML.
func (w *Recorder) End(res *core.FlowResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.report.applyFlow(res)

	var saveErr error
	if res.Diagnostic != nil && len(res.Diagnostic.Body) > 0 {
		rel, err := w.saveDiagnostic(res.Diagnostic)
		if err != nil {
			saveErr = fmt.Errorf("save diagnostic: %w", err)
		} else {
			w.report.Diagnostic = rel
			res.Diagnostic.Path = rel
		}
	}

	if err := w.writeLocked(); err != nil {
		return err
	}
	if err := GenerateHTML(w.outputDir, w.html); err != nil {
		return err
	}
	return saveErr
}

// Report returns the current report (for reading).
func (w *Recorder) Report() *Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.report
}

// Path returns the report.json path.
func (w *Recorder) Path() string {
	return w.path
}

func (w *Recorder) saveDiagnostic(a *core.Attachment) (string, error) {
	dir := filepath.Join(w.outputDir, AssetsDir)
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	name := "diagnostic" + a.Extension()
	if err := os.WriteFile(filepath.Join(dir, name), a.Body, 0o644); err != nil {
		return "", err
	}
	return filepath.Join(AssetsDir, name), nil
}

// flushLocked writes progress. Failures are logged, not returned: a live
// update must never disturb the run.
func (w *Recorder) flushLocked() {
	if err := w.writeLocked(); err != nil {
		logger.Warn("write report: %v", err)
		return
	}
	if err := GenerateHTML(w.outputDir, w.html); err != nil {
		logger.Warn("render report: %v", err)
	}
}

func (w *Recorder) writeLocked() error {
	w.report.UpdateSeq++
	w.report.LastUpdated = time.Now()
	w.report.Summary = computeSummary(w.report.Steps)
	return atomicWriteJSON(w.path, w.report)
}

// ReadReport reads report.json from a report directory.
func ReadReport(reportDir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(reportDir, ReportFile)) //#nosec G304 -- report directory chosen by the user
	if err != nil {
		return nil, err
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ReportFile, err)
	}
	return &rep, nil
}

func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
