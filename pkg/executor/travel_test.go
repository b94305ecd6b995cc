package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/driver/mock"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

var travelToday = time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC)

// scaledTravel shrinks the travel flow timeouts so tests finish quickly.
func scaledTravel() flow.Flow {
	f := flow.TravelInsurance()
	for i := range f.Steps {
		s := &f.Steps[i]
		s.Timeout = 300 * time.Millisecond
		if s.IsOptional() {
			s.Timeout = 200 * time.Millisecond
		}
		if s.HasFallback() {
			s.FallbackTimeout = 200 * time.Millisecond
		}
	}
	return f
}

func runTravel(t *testing.T, w *mock.Wizard) *core.FlowResult {
	t.Helper()
	r := New(opener(w), RunnerConfig{
		ReferenceDate: travelToday,
		PollInterval:  10 * time.Millisecond,
	})
	result, err := r.Run(context.Background(), scaledTravel())
	require.NoError(t, err)
	require.Len(t, result.Steps, len(flow.TravelInsurance().Steps))
	assert.Equal(t, 1, w.Calls().Quit)
	return result
}

func stepResult(t *testing.T, result *core.FlowResult, name string) core.StepResult {
	t.Helper()
	for _, s := range result.Steps {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no result for step %s", name)
	return core.StepResult{}
}

func TestTravel_HiddenPolicyLinkPassesViaFallback(t *testing.T) {
	w := mock.NewTravelWizard(mock.WizardOptions{Today: travelToday})

	result := runTravel(t, w)

	assert.Equal(t, core.OutcomePass, result.Outcome, result.Error)
	assert.Equal(t, flow.TravelPolicyURL, w.URL())
	assert.Equal(t, "summary", w.Page())

	start, end := w.Selected()
	assert.Equal(t, "2025-01-15", start)
	assert.Equal(t, "2025-02-13", end)

	days := stepResult(t, result, flow.StepTotalDays)
	assert.Contains(t, days.Data, "30")

	link := stepResult(t, result, flow.StepPolicyLink)
	assert.True(t, link.UsedFallback)
	assert.Contains(t, link.Message, "passed via fallback")

	href := stepResult(t, result, flow.StepPolicyHref)
	assert.Equal(t, core.StatusPassed, href.Status)
	assert.Equal(t, "https://digital.harel-group.co.il/media/travel-policy-agreement.pdf", href.Data)

	assert.Nil(t, result.Diagnostic)
	assert.Zero(t, w.Calls().Screenshot)
}

func TestTravel_VisibleLinkWithSlowRendering(t *testing.T) {
	w := mock.NewTravelWizard(mock.WizardOptions{
		Today:             travelToday,
		RenderDelay:       40 * time.Millisecond,
		PolicyLinkVisible: true,
	})

	result := runTravel(t, w)

	assert.Equal(t, core.OutcomePass, result.Outcome, result.Error)
	for _, s := range result.Steps {
		assert.False(t, s.UsedFallback, "step %s", s.Name)
		assert.LessOrEqual(t, s.Attempts, 2, "step %s", s.Name)
	}
}

func TestTravel_WrongDayCountFails(t *testing.T) {
	w := mock.NewTravelWizard(mock.WizardOptions{Today: travelToday, DayCountOffset: -1})

	result := runTravel(t, w)

	assert.Equal(t, core.OutcomeFail, result.Outcome)
	days := stepResult(t, result, flow.StepTotalDays)
	assert.Equal(t, core.StatusFailed, days.Status)
	assert.Equal(t, core.ErrCategoryAssertion, days.Category)
	assert.Contains(t, days.Data, "29")

	assert.Equal(t, core.StatusSkipped, stepResult(t, result, flow.StepNextDates).Status)
	assert.Equal(t, core.StatusSkipped, stepResult(t, result, flow.StepPolicyHref).Status)
	require.NotNil(t, result.Diagnostic)
	assert.Equal(t, 1, w.Calls().Screenshot)
	assert.Equal(t, "dates", w.Page())
}

func TestTravel_InsecureHrefIsSoftPass(t *testing.T) {
	href := "http://digital.harel-group.co.il/media/travel-policy-agreement.pdf"
	w := mock.NewTravelWizard(mock.WizardOptions{Today: travelToday, PolicyHref: &href, PolicyLinkVisible: true})

	result := runTravel(t, w)

	assert.Equal(t, core.OutcomeSoftPass, result.Outcome)
	assert.Equal(t, core.StatusPassed, stepResult(t, result, flow.StepPolicyLink).Status)
	assert.Equal(t, core.StatusWarned, stepResult(t, result, flow.StepPolicyHref).Status)
	assert.Equal(t, 1, result.WarnedSteps)
	assert.Zero(t, w.Calls().Screenshot)
}

func TestTravel_MissingHrefFailsPrimaryAssertion(t *testing.T) {
	empty := ""
	w := mock.NewTravelWizard(mock.WizardOptions{Today: travelToday, PolicyHref: &empty})

	result := runTravel(t, w)

	assert.Equal(t, core.OutcomeFail, result.Outcome)
	assert.Equal(t, core.StatusFailed, stepResult(t, result, flow.StepPolicyLink).Status)
	assert.Equal(t, core.StatusSkipped, stepResult(t, result, flow.StepPolicyHref).Status)
	assert.Equal(t, 1, w.Calls().Screenshot)
}

func TestTravel_NoPolicyLinkFails(t *testing.T) {
	w := mock.NewTravelWizard(mock.WizardOptions{Today: travelToday, NoPolicyLink: true})

	result := runTravel(t, w)

	assert.Equal(t, core.OutcomeFail, result.Outcome)
	link := stepResult(t, result, flow.StepPolicyLink)
	assert.Equal(t, core.StatusFailed, link.Status)
	assert.True(t, link.UsedFallback)
	assert.Equal(t, core.ErrCategoryTimeout, link.Category)
	require.NotNil(t, result.Diagnostic)
	assert.Equal(t, 1, w.Calls().Screenshot)
}

func TestTravel_EndDateOutsideCalendar(t *testing.T) {
	w := mock.NewTravelWizard(mock.WizardOptions{Today: travelToday, CalendarDays: 10})

	result := runTravel(t, w)

	assert.Equal(t, core.OutcomeFail, result.Outcome)
	end := stepResult(t, result, flow.StepEndDate)
	assert.Equal(t, core.StatusFailed, end.Status)
	assert.Equal(t, `xpath="//button[@data-hrl-bo='2025-02-13']"`, end.Locator)
	assert.Equal(t, core.StatusSkipped, stepResult(t, result, flow.StepTotalDays).Status)
}

func TestTravel_BrowserLostMidRun(t *testing.T) {
	w := mock.NewTravelWizard(mock.WizardOptions{Today: travelToday})
	w.Config.FaultAfterFinds = 3

	result := runTravel(t, w)

	assert.Equal(t, core.OutcomeFail, result.Outcome)
	assert.Equal(t, core.StatusErrored, result.Status)
	assert.Nil(t, result.Diagnostic)
	assert.Equal(t, 1, result.FailedSteps)
}
