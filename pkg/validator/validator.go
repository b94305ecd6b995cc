// Package validator checks a flow before execution.
// Every problem is collected so a broken flow is reported in one pass.
package validator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Step    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Step == "" {
		return e.Message
	}
	return fmt.Sprintf("step %q: %s", e.Step, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Steps is the number of steps checked.
	Steps int
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Error joins all messages, one per line.
func (r *Result) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// Validator validates flows.
type Validator struct {
	// RequireURL rejects flows without an entry URL. Off when the URL comes
	// from configuration instead.
	RequireURL bool
}

// New creates a new Validator.
func New(requireURL bool) *Validator {
	return &Validator{RequireURL: requireURL}
}

// Validate checks f and returns all problems found.
func (v *Validator) Validate(f flow.Flow) *Result {
	result := &Result{Steps: len(f.Steps)}
	addf := func(step, format string, args ...any) {
		result.Errors = append(result.Errors, &ValidationError{Step: step, Message: fmt.Sprintf(format, args...)})
	}

	if f.Name == "" {
		addf("", "flow has no name")
	}
	if f.URL != "" {
		if u, err := url.Parse(f.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			addf("", "invalid url %q", f.URL)
		}
	} else if v.RequireURL {
		addf("", "flow has no url")
	}
	if len(f.Steps) == 0 {
		addf("", "flow has no steps")
	}

	seen := make(map[string]bool, len(f.Steps))
	for i := range f.Steps {
		step := &f.Steps[i]
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
			addf(name, "step has no name")
		} else if seen[name] {
			addf(name, "duplicate step name")
		}
		seen[name] = true

		for _, msg := range checkStep(step) {
			addf(name, "%s", msg)
		}
	}

	return result
}

func checkStep(s *flow.Step) []string {
	var msgs []string
	msgs = append(msgs, checkSelector(s.Selector)...)
	msgs = append(msgs, checkAction("action", s.Action)...)

	if s.Timeout <= 0 {
		msgs = append(msgs, fmt.Sprintf("timeout must be positive, got %v", s.Timeout))
	}
	if s.Criticality != flow.Hard && s.Criticality != flow.Soft {
		msgs = append(msgs, fmt.Sprintf("unknown criticality %q", s.Criticality))
	}

	if !s.HasFallback() {
		if s.FallbackTimeout != 0 {
			msgs = append(msgs, "fallbackTimeout set without a fallback")
		}
		return msgs
	}
	msgs = append(msgs, checkAction("fallback", *s.Fallback)...)
	if s.FallbackTimeout < 0 {
		msgs = append(msgs, fmt.Sprintf("fallbackTimeout must not be negative, got %v", s.FallbackTimeout))
	}
	if !compatibleFallback(s.Action.Kind, s.Fallback.Kind) {
		msgs = append(msgs, fmt.Sprintf("fallback %s cannot stand in for %s", s.Fallback.Kind, s.Action.Kind))
	}
	if *s.Fallback == s.Action {
		msgs = append(msgs, "fallback repeats the primary action")
	}
	return msgs
}

func checkSelector(sel flow.Selector) []string {
	var msgs []string
	if sel.By != flow.ByCSS && sel.By != flow.ByXPath {
		msgs = append(msgs, fmt.Sprintf("unsupported locator kind %q", sel.By))
	}
	switch {
	case sel.IsEmpty():
		msgs = append(msgs, "selector is empty")
	case sel.IsDynamic():
		if sel.Value != "" {
			msgs = append(msgs, "selector has both value and template")
		}
		if !strings.Contains(sel.Template, flow.DatePlaceholder) {
			msgs = append(msgs, fmt.Sprintf("template %q has no %s placeholder", sel.Template, flow.DatePlaceholder))
		}
		if sel.Anchor != flow.AnchorStart && sel.Anchor != flow.AnchorEnd {
			msgs = append(msgs, fmt.Sprintf("unknown date anchor %q", sel.Anchor))
		}
	case sel.Anchor != "":
		msgs = append(msgs, "date anchor set on a static selector")
	}
	return msgs
}

func checkAction(label string, a flow.Action) []string {
	var msgs []string
	switch a.Kind {
	case flow.ActionClick, flow.ActionReadText, flow.ActionAssertVisible, flow.ActionAssertExists:
		if a.Attribute != "" {
			msgs = append(msgs, fmt.Sprintf("%s: attribute only applies to %s", label, flow.ActionReadAttribute))
		}
	case flow.ActionReadAttribute:
		if a.Attribute == "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s needs an attribute", label, a.Kind))
		}
	default:
		msgs = append(msgs, fmt.Sprintf("%s: unknown kind %q", label, a.Kind))
	}

	if a.Strategy != flow.StrategyNative && a.Strategy != flow.StrategyScript {
		msgs = append(msgs, fmt.Sprintf("%s: unknown strategy %q", label, a.Strategy))
	}
	if !a.Expect.IsEmpty() && a.Kind != flow.ActionReadText && a.Kind != flow.ActionReadAttribute {
		msgs = append(msgs, fmt.Sprintf("%s: expect only applies to read actions", label))
	}
	return msgs
}

// compatibleFallback reports whether fb achieves what primary was meant to.
// A visibility check may relax to an existence check.
func compatibleFallback(primary, fb flow.ActionKind) bool {
	if primary == fb {
		return true
	}
	return primary == flow.ActionAssertVisible && fb == flow.ActionAssertExists
}
