package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// slowThreshold marks a passing step as slow in the live output.
const slowThreshold = 5 * time.Second

// console prints live progress and the final summary.
type console struct {
	w io.Writer

	ok    lipgloss.Style
	fail  lipgloss.Style
	warn  lipgloss.Style
	skip  lipgloss.Style
	dim   lipgloss.Style
	bold  lipgloss.Style
	title lipgloss.Style
	box   lipgloss.Style
}

func newConsole(w io.Writer, color bool) *console {
	plain := lipgloss.NewStyle()
	c := &console{w: w, ok: plain, fail: plain, warn: plain, skip: plain, dim: plain, bold: plain, title: plain,
		box: plain.Border(lipgloss.NormalBorder()).Padding(0, 2)}
	if !color {
		return c
	}
	c.ok = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	c.fail = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	c.warn = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	c.skip = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	c.dim = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	c.bold = lipgloss.NewStyle().Bold(true)
	c.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	c.box = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("6")).Padding(0, 2)
	return c
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func (c *console) banner() {
	c.printf("\n%s\n\n", c.box.Render(
		c.title.Render("wizard-runner "+Version)+"\n"+c.dim.Render("web wizard step runner")))
}

func (c *console) flowStart(f flow.Flow, dr flow.DateRange, driver string) {
	c.printf("  %s %s\n", c.bold.Render(f.Name), c.dim.Render("("+f.URL+")"))
	c.printf("  %s\n", c.dim.Render(fmt.Sprintf("driver %s, trip %s (%d days)", driver, dr, dr.Days())))
	c.printf("%s\n", strings.Repeat("─", 60))
}

func (c *console) stepDone(res core.StepResult) {
	desc := res.Name
	if res.UsedFallback {
		desc += c.dim.Render(" [fallback]")
	}
	dur := formatDuration(res.Duration)

	switch res.Status {
	case core.StatusPassed:
		symbol, durStyle := c.ok.Render("✓"), c.dim
		if res.Duration >= slowThreshold {
			durStyle = c.warn
		}
		c.printf("    %s %s %s\n", symbol, desc, durStyle.Render("("+dur+")"))
		if res.Data != "" {
			c.printf("      %s %s\n", c.dim.Render("╰─"), c.dim.Render(res.Data))
		}
	case core.StatusWarned:
		c.printf("    %s %s %s\n", c.warn.Render("⚠"), desc, c.dim.Render("("+dur+", soft)"))
		c.printf("      %s %s\n", c.dim.Render("╰─"), c.warn.Render(res.Message))
	case core.StatusSkipped:
		c.printf("    %s %s\n", c.skip.Render("-"), c.dim.Render(desc+" (skipped)"))
	default:
		c.printf("    %s %s %s\n", c.fail.Render("✗"), desc, c.dim.Render("("+dur+")"))
		if res.Message != "" {
			c.printf("      %s %s\n", c.dim.Render("╰─"), c.fail.Render(res.Message))
		}
	}
}

func (c *console) summary(res *core.FlowResult, reportDir string) {
	c.printf("\n")
	if res.Error != "" {
		c.printf("  %s %s\n", c.fail.Render("error:"), res.Error)
	}

	var outcome string
	switch res.Outcome {
	case core.OutcomePass:
		outcome = c.ok.Render("✓ PASS")
	case core.OutcomeSoftPass:
		outcome = c.warn.Render("⚠ SOFT-PASS")
	default:
		outcome = c.fail.Render("✗ FAIL")
	}

	c.printf("%s\n", strings.Repeat("═", 60))
	c.printf("  %s  %s\n", outcome, c.dim.Render(formatDuration(res.Duration)))
	c.printf("  %d steps: %s, %s, %s, %s\n", res.TotalSteps,
		c.ok.Render(fmt.Sprintf("%d passed", res.PassedSteps)),
		c.fail.Render(fmt.Sprintf("%d failed", res.FailedSteps)),
		c.warn.Render(fmt.Sprintf("%d warned", res.WarnedSteps)),
		c.skip.Render(fmt.Sprintf("%d skipped", res.SkippedSteps)))
	if res.Diagnostic != nil && res.Diagnostic.Path != "" {
		c.printf("  diagnostic: %s\n", res.Diagnostic.Path)
	}
	c.printf("  report:     %s\n", reportDir)
	c.printf("%s\n", strings.Repeat("═", 60))
}

// formatDuration formats a duration for the console.
// Shows milliseconds below 1s, seconds otherwise.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
