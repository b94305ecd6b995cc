package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// Scripts used by the script strategy. Each runs as a function body with
// the element as arguments[0].
const (
	ScriptClick        = "arguments[0].click();"
	ScriptTextContent  = "return arguments[0].textContent;"
	ScriptGetAttribute = "return arguments[0].getAttribute(arguments[1]);"
	ScriptExists       = "return arguments[0] != null && arguments[0].isConnected !== false;"
	ScriptVisible      = `var el = arguments[0];
if (el == null || el.isConnected === false) { return false; }
var style = window.getComputedStyle(el);
if (style.display === 'none' || style.visibility === 'hidden') { return false; }
return el.offsetWidth > 0 || el.offsetHeight > 0;`
)

// Ack acknowledges a performed action.
type Ack struct {
	Kind     flow.ActionKind
	Strategy flow.Strategy
	Value    string // Text or attribute read, if any
}

// Invoker performs one action on a resolved element.
type Invoker struct {
	Driver core.Driver
}

// Act performs action a on el using the action's strategy.
// Expectation mismatches and failed assertions return ErrAssertionMismatch;
// a refused native click returns ErrActionRejected.
func (i Invoker) Act(ctx context.Context, el core.Element, a flow.Action) (Ack, error) {
	ack := Ack{Kind: a.Kind, Strategy: a.Strategy}

	var err error
	switch a.Strategy {
	case flow.StrategyNative:
		ack.Value, err = i.native(ctx, el, a)
	case flow.StrategyScript:
		ack.Value, err = i.script(ctx, el, a)
	default:
		err = core.ErrInvalidStep.WithMessagef("unknown strategy %q", a.Strategy)
	}
	if err != nil {
		return ack, err
	}

	if a.Kind == flow.ActionReadText || a.Kind == flow.ActionReadAttribute {
		if msg := a.Expect.Check(ack.Value); msg != "" {
			return ack, core.ErrAssertionMismatch.WithMessage(msg)
		}
	}
	return ack, nil
}

func (i Invoker) native(ctx context.Context, el core.Element, a flow.Action) (string, error) {
	switch a.Kind {
	case flow.ActionClick:
		if err := el.Click(ctx); err != nil {
			return "", classifyNative(err)
		}
		return "", nil

	case flow.ActionReadText:
		return el.Text(ctx)

	case flow.ActionReadAttribute:
		v, ok, err := el.Attribute(ctx, a.Attribute)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", core.ErrAssertionMismatch.WithMessagef("attribute %q is missing", a.Attribute)
		}
		return v, nil

	case flow.ActionAssertVisible:
		ok, err := el.IsVisible(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", core.ErrAssertionMismatch.WithMessage("element is not visible")
		}
		return "", nil

	case flow.ActionAssertExists:
		if el == nil {
			return "", core.ErrAssertionMismatch.WithMessage("element does not exist")
		}
		return "", nil
	}
	return "", core.ErrInvalidStep.WithMessagef("unknown action %q", a.Kind)
}

func (i Invoker) script(ctx context.Context, el core.Element, a flow.Action) (string, error) {
	switch a.Kind {
	case flow.ActionClick:
		_, err := i.Driver.ExecuteScript(ctx, ScriptClick, el)
		return "", err

	case flow.ActionReadText:
		v, err := i.Driver.ExecuteScript(ctx, ScriptTextContent, el)
		if err != nil {
			return "", err
		}
		return stringResult(v), nil

	case flow.ActionReadAttribute:
		v, err := i.Driver.ExecuteScript(ctx, ScriptGetAttribute, el, a.Attribute)
		if err != nil {
			return "", err
		}
		if v == nil {
			return "", core.ErrAssertionMismatch.WithMessagef("attribute %q is missing", a.Attribute)
		}
		return stringResult(v), nil

	case flow.ActionAssertVisible:
		return "", i.scriptAssert(ctx, ScriptVisible, el, "element is not visible")

	case flow.ActionAssertExists:
		return "", i.scriptAssert(ctx, ScriptExists, el, "element does not exist")
	}
	return "", core.ErrInvalidStep.WithMessagef("unknown action %q", a.Kind)
}

func (i Invoker) scriptAssert(ctx context.Context, script string, el core.Element, failure string) error {
	v, err := i.Driver.ExecuteScript(ctx, script, el)
	if err != nil {
		return err
	}
	if ok, _ := v.(bool); !ok {
		return core.ErrAssertionMismatch.WithMessage(failure)
	}
	return nil
}

// classifyNative maps an unclassified native click failure to a rejection.
func classifyNative(err error) error {
	var ee *core.ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	return core.ErrActionRejected.WithCause(err)
}

func stringResult(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
