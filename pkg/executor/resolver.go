package executor

import (
	"strings"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// Resolver turns selectors into concrete locators. Dynamic selectors are
// expanded against the run's DateRange, which is fixed for the whole run.
type Resolver struct {
	Range flow.DateRange
}

// Resolve returns the concrete locator for sel.
// A locator that matches nothing is not an error here; the wait times out.
func (r Resolver) Resolve(sel flow.Selector) (flow.Locator, error) {
	if sel.By != flow.ByCSS && sel.By != flow.ByXPath {
		return flow.Locator{}, core.ErrInvalidStep.WithMessagef("unsupported locator kind %q", sel.By)
	}
	if sel.IsEmpty() {
		return flow.Locator{}, core.ErrInvalidStep.WithMessage("selector is empty")
	}
	if !sel.IsDynamic() {
		return sel.Expand(""), nil
	}

	if !strings.Contains(sel.Template, flow.DatePlaceholder) {
		return flow.Locator{}, core.ErrInvalidStep.WithMessagef("template %q has no %s placeholder", sel.Template, flow.DatePlaceholder)
	}
	date := r.Range.Date(sel.Anchor)
	if date == "" {
		return flow.Locator{}, core.ErrInvalidStep.WithMessagef("unknown date anchor %q", sel.Anchor)
	}
	return sel.Expand(date), nil
}
