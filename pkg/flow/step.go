// Package flow holds the declarative description of the wizard walk-through.
package flow

import (
	"fmt"
	"strings"
	"time"
)

// ActionKind is what a step does to its element.
type ActionKind string

// Action kinds.
const (
	ActionClick         ActionKind = "click"
	ActionReadText      ActionKind = "readText"
	ActionReadAttribute ActionKind = "readAttribute"
	ActionAssertVisible ActionKind = "assertVisible"
	ActionAssertExists  ActionKind = "assertExists"
)

// Strategy selects the interaction path.
type Strategy string

// Strategies.
const (
	// StrategyNative goes through the driver's regular interaction path,
	// including its visibility and interactability checks.
	StrategyNative Strategy = "native"
	// StrategyScript dispatches directly in the page via script execution.
	StrategyScript Strategy = "script"
)

// Criticality decides whether a failed step aborts the flow.
type Criticality string

// Criticality levels.
const (
	Hard Criticality = "hard"
	Soft Criticality = "soft"
)

// Expectation constrains the value read by readText / readAttribute.
// Empty fields are not checked.
type Expectation struct {
	Contains  string `yaml:"contains,omitempty" json:"contains,omitempty"`
	Equals    string `yaml:"equals,omitempty" json:"equals,omitempty"`
	HasPrefix string `yaml:"hasPrefix,omitempty" json:"hasPrefix,omitempty"`
	HasSuffix string `yaml:"hasSuffix,omitempty" json:"hasSuffix,omitempty"`
}

// IsEmpty returns true if nothing is expected.
func (e Expectation) IsEmpty() bool {
	return e == Expectation{}
}

// Check returns a description of the first unmet constraint, or "".
func (e Expectation) Check(value string) string {
	trimmed := strings.TrimSpace(value)
	switch {
	case e.Equals != "" && trimmed != e.Equals:
		return fmt.Sprintf("expected %q, got %q", e.Equals, trimmed)
	case e.Contains != "" && !strings.Contains(value, e.Contains):
		return fmt.Sprintf("expected %q to contain %q", trimmed, e.Contains)
	case e.HasPrefix != "" && !strings.HasPrefix(trimmed, e.HasPrefix):
		return fmt.Sprintf("expected %q to start with %q", trimmed, e.HasPrefix)
	case e.HasSuffix != "" && !strings.HasSuffix(trimmed, e.HasSuffix):
		return fmt.Sprintf("expected %q to end with %q", trimmed, e.HasSuffix)
	}
	return ""
}

// Action is one interaction with a resolved element.
type Action struct {
	Kind      ActionKind  `yaml:"kind"`
	Strategy  Strategy    `yaml:"strategy"`
	Attribute string      `yaml:"attribute,omitempty"`
	Expect    Expectation `yaml:"expect,omitempty"`
}

// Describe returns e.g. "click (script)".
func (a Action) Describe() string {
	desc := string(a.Kind)
	if a.Kind == ActionReadAttribute && a.Attribute != "" {
		desc += "[" + a.Attribute + "]"
	}
	return desc + " (" + string(a.Strategy) + ")"
}

// Step is a single ordered unit of the flow: locate, wait, act.
// Steps are built once and never mutated while running.
type Step struct {
	Name        string        `yaml:"name"`
	Selector    Selector      `yaml:"selector"`
	Action      Action        `yaml:"action"`
	Timeout     time.Duration `yaml:"timeout"`
	Criticality Criticality   `yaml:"criticality"`

	// Fallback runs when the primary wait times out or the primary act fails.
	// Its wait only requires the element to exist.
	Fallback        *Action       `yaml:"fallback,omitempty"`
	FallbackTimeout time.Duration `yaml:"fallbackTimeout,omitempty"`
}

// IsOptional returns true for soft steps.
func (s *Step) IsOptional() bool { return s.Criticality == Soft }

// HasFallback returns true if a fallback action is configured.
func (s *Step) HasFallback() bool { return s.Fallback != nil }

// Describe returns a human-readable description.
func (s *Step) Describe() string {
	return s.Action.Describe() + " " + s.Selector.DescribeQuoted()
}
