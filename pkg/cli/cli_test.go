package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/wizard-runner/pkg/config"
	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
	"github.com/devicelab-dev/wizard-runner/pkg/report"
)

// testApp returns an app that reports exit codes instead of exiting.
func testApp(out *bytes.Buffer) *cli.App {
	app := NewApp()
	app.Writer = out
	app.ErrWriter = out
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func TestResolveOutputDir(t *testing.T) {
	_, err := resolveOutputDir(config.Default(), false, true)
	assert.Error(t, err, "--flatten without --output")

	ws := config.Default()
	ws.Output = "./out/"
	dir, err := resolveOutputDir(ws, true, true)
	require.NoError(t, err)
	assert.Equal(t, "out", dir)

	dir, err = resolveOutputDir(ws, true, false)
	require.NoError(t, err)
	assert.Equal(t, "out", filepath.Dir(dir))
	_, err = time.Parse("2006-01-02_15-04-05", filepath.Base(dir))
	assert.NoError(t, err, "timestamp subfolder")
}

func TestParseDate(t *testing.T) {
	zero, err := parseDate("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	d, err := parseDate("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 1, d.Day())

	_, err = parseDate("01/03/2025")
	assert.Error(t, err)
}

func TestExitFor(t *testing.T) {
	assert.Equal(t, 0, exitCode(exitFor(core.OutcomePass, 2)))
	assert.Equal(t, 2, exitCode(exitFor(core.OutcomeSoftPass, 2)))
	assert.Equal(t, 0, exitCode(exitFor(core.OutcomeSoftPass, 0)))
	assert.Equal(t, 1, exitCode(exitFor(core.OutcomeFail, 2)))
}

func TestBuildPlan(t *testing.T) {
	dr := flow.NewDateRange(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	p := buildPlan(flow.TravelInsurance(), dr)

	assert.Equal(t, "2025-01-15", p.Dates.Start)
	assert.Equal(t, "2025-02-13", p.Dates.End)
	assert.Equal(t, 30, p.Dates.Days)

	byName := map[string]planStep{}
	for _, s := range p.Steps {
		byName[s.Name] = s
	}
	assert.Contains(t, byName[flow.StepStartDate].Locator, "2025-01-15")
	assert.Contains(t, byName[flow.StepEndDate].Locator, "2025-02-13")
	assert.Equal(t, "click (script)", byName[flow.StepFirstPurchase].Fallback)
	assert.Equal(t, "5s", byName[flow.StepFirstPurchase].FallbackTimeout)
	assert.Empty(t, byName[flow.StepStartDate].Fallback)
	assert.Equal(t, flow.Soft, byName[flow.StepPolicyHref].Criticality)
}

func TestFlowCommand(t *testing.T) {
	var out bytes.Buffer
	err := testApp(&out).Run([]string{"wizard-runner", "flow", "--date", "2025-01-15"})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "name: travel-insurance")
	assert.Contains(t, text, "days: 30")
	assert.Contains(t, text, "2025-02-13")
	assert.Contains(t, text, "fallback: click (script)")
}

func TestFlowCommand_BadDate(t *testing.T) {
	var out bytes.Buffer
	err := testApp(&out).Run([]string{"wizard-runner", "flow", "--date", "tomorrow"})
	assert.Equal(t, 1, exitCode(err))
}

func TestFlowCommand_InvalidFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: broken
steps:
  - name: click
    selector: {by: css, value: "#go"}
    action: {kind: hover, strategy: native}
    timeout: 1s
    criticality: hard
`), 0o644))

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"wizard-runner", "flow", "--flow", path})
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, err.Error(), `unknown kind "hover"`)
}

// writeMockRun prepares a fast config and flow for the mock wizard.
func writeMockRun(t *testing.T, mutate func(f *flow.Flow)) (cfgPath, flowPath, outDir string) {
	t.Helper()
	dir := t.TempDir()

	f := flow.TravelInsurance()
	for i := range f.Steps {
		s := &f.Steps[i]
		s.Timeout = 300 * time.Millisecond
		if s.HasFallback() {
			s.FallbackTimeout = 200 * time.Millisecond
		}
	}
	if mutate != nil {
		mutate(&f)
	}
	data, err := flow.Marshal(f)
	require.NoError(t, err)

	flowPath = filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(flowPath, data, 0o644))

	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("pollInterval: 10ms\nreport:\n  title: CLI test\n"), 0o644))

	return cfgPath, flowPath, filepath.Join(dir, "out")
}

func runMock(t *testing.T, cfgPath, flowPath, outDir string, extra ...string) (string, error) {
	t.Helper()
	args := []string{"wizard-runner", "--no-color", "run",
		"--config", cfgPath, "--flow", flowPath,
		"--driver", "mock", "--output", outDir, "--flatten",
		"--date", "2025-01-15"}
	args = append(args, extra...)

	var out bytes.Buffer
	err := testApp(&out).Run(args)
	return out.String(), err
}

func TestRunCommand_MockPass(t *testing.T) {
	cfgPath, flowPath, outDir := writeMockRun(t, nil)

	out, err := runMock(t, cfgPath, flowPath, outDir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ PASS")
	assert.Contains(t, out, "[fallback]", "hidden policy link confirmed by the existence fallback")

	rep, err := report.ReadReport(outDir)
	require.NoError(t, err)
	assert.Equal(t, string(core.OutcomePass), rep.Outcome)
	assert.Equal(t, "CLI test", rep.Title)
	assert.Equal(t, "2025-02-13", rep.Flow.EndDate)
	assert.Equal(t, "mock", rep.Environment.Driver)
	assert.Empty(t, rep.Diagnostic)

	assert.FileExists(t, filepath.Join(outDir, report.HTMLFile))
	assert.FileExists(t, filepath.Join(outDir, "wizard-runner.log"))
}

func TestRunCommand_MockSoftPass(t *testing.T) {
	cfgPath, flowPath, outDir := writeMockRun(t, func(f *flow.Flow) {
		f.Step(flow.StepPolicyHref).Action.Expect.HasPrefix = "ftp://"
	})

	out, err := runMock(t, cfgPath, flowPath, outDir, "--soft-pass-exit-code", "3")
	assert.Equal(t, 3, exitCode(err), out)
	assert.Contains(t, out, "SOFT-PASS")

	rep, err := report.ReadReport(outDir)
	require.NoError(t, err)
	assert.Equal(t, string(core.OutcomeSoftPass), rep.Outcome)
	assert.Equal(t, 1, rep.Summary.Warned)
}

func TestRunCommand_MockHardFailure(t *testing.T) {
	cfgPath, flowPath, outDir := writeMockRun(t, func(f *flow.Flow) {
		f.Step(flow.StepTotalDays).Action.Expect.Contains = "31"
	})

	out, err := runMock(t, cfgPath, flowPath, outDir)
	assert.Equal(t, 1, exitCode(err), out)
	assert.Contains(t, out, "✗ FAIL")

	rep, err := report.ReadReport(outDir)
	require.NoError(t, err)
	assert.Equal(t, string(core.OutcomeFail), rep.Outcome)
	assert.Equal(t, filepath.Join(report.AssetsDir, "diagnostic.png"), rep.Diagnostic)
	assert.FileExists(t, filepath.Join(outDir, rep.Diagnostic))

	var skipped int
	for _, s := range rep.Steps {
		if s.Status == report.StatusSkipped {
			skipped++
		}
	}
	assert.Equal(t, 3, skipped, "steps after the total days check never run")
}

func TestRunCommand_InvalidDriver(t *testing.T) {
	cfgPath, flowPath, outDir := writeMockRun(t, nil)

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"wizard-runner", "run",
		"--config", cfgPath, "--flow", flowPath, "--driver", "selenium", "--output", outDir})
	assert.Equal(t, 1, exitCode(err))
	assert.True(t, strings.Contains(err.Error(), "unknown driver"), err.Error())
}

func TestRunCommand_EnvFile(t *testing.T) {
	cfgPath, flowPath, outDir := writeMockRun(t, nil)
	envPath := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("WIZARD_DRIVER=mock\n"), 0o644))
	t.Setenv("WIZARD_DRIVER", "")
	require.NoError(t, os.Unsetenv("WIZARD_DRIVER"))

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"wizard-runner", "--no-color", "--env-file", envPath, "run",
		"--config", cfgPath, "--flow", flowPath, "--output", outDir, "--flatten", "--date", "2025-01-15"})
	require.NoError(t, err, out.String())

	rep, err := report.ReadReport(outDir)
	require.NoError(t, err)
	assert.Equal(t, "mock", rep.Environment.Driver)
}

func TestAbortedResult(t *testing.T) {
	dr := flow.NewDateRange(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	res := abortedResult(flow.TravelInsurance(), dr, errors.New("chrome not found"))

	assert.Equal(t, core.OutcomeFail, res.Outcome)
	assert.Equal(t, "chrome not found", res.Error)
	assert.Equal(t, len(flow.TravelInsurance().Steps), res.SkippedSteps)
	assert.Equal(t, "2025-02-13", res.EndDate)
}
