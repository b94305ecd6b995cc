package chrome

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// Markers thrown by element functions and mapped back to core errors.
const (
	staleMarker           = "wizard-runner: stale element"
	interceptedMarker     = "element click intercepted"
	notInteractableMarker = "element not interactable"
)

// Element functions run with the element bound to this.
const (
	jsAttached = `if (!this.isConnected) { throw new Error("` + staleMarker + `"); }`

	jsRendered = `const s = window.getComputedStyle(this);
	if (s.display === "none" || s.visibility === "hidden" || s.visibility === "collapse") { return false; }
	const r = this.getBoundingClientRect();
	if (r.width === 0 || r.height === 0) { return false; }`

	fnVisible = `function() {
	` + jsAttached + `
	` + jsRendered + `
	return true;
}`

	fnInteractable = `function() {
	` + jsAttached + `
	` + jsRendered + `
	if (this.disabled || this.getAttribute("aria-disabled") === "true") { return false; }
	return s.pointerEvents !== "none";
}`

	// fnClickPoint scrolls the element into view and returns its center,
	// refusing when another node would receive the click.
	fnClickPoint = `function() {
	` + jsAttached + `
	if (this.disabled) { throw new Error("` + notInteractableMarker + `: disabled"); }
	this.scrollIntoView({block: "center", inline: "center"});
	const r = this.getBoundingClientRect();
	if (r.width === 0 || r.height === 0) { throw new Error("` + notInteractableMarker + `: not rendered"); }
	const x = r.left + r.width / 2, y = r.top + r.height / 2;
	const hit = document.elementFromPoint(x, y);
	if (hit !== this && !this.contains(hit)) {
		const tag = hit ? hit.tagName.toLowerCase() + (hit.className ? "." + String(hit.className).split(" ").join(".") : "") : "nothing";
		throw new Error("` + interceptedMarker + `: " + tag + " would receive the click");
	}
	return {x: x, y: y};
}`

	fnText = `function() {
	` + jsAttached + `
	return this.innerText;
}`

	fnAttribute = `function(name) {
	` + jsAttached + `
	if (!this.hasAttribute(name)) { return {ok: false, value: ""}; }
	return {ok: true, value: this.getAttribute(name)};
}`
)

// findExpression returns a JS expression evaluating to the first node
// matching loc, or null.
func findExpression(loc flow.Locator) (string, error) {
	q, err := json.Marshal(loc.Value)
	if err != nil {
		return "", err
	}
	switch loc.By {
	case flow.ByCSS:
		return fmt.Sprintf("document.querySelector(%s)", q), nil
	case flow.ByXPath:
		return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", q), nil
	}
	return "", core.ErrInvalidStep.WithMessagef("unsupported locator kind %q", loc.By)
}

// elementFunction wraps a script body so that it runs with this as
// arguments[0] followed by the remaining call arguments.
func elementFunction(script string) string {
	return "function(...rest) {\n" +
		"const r = (function() {\n" + script + "\n}).apply(this, [this].concat(rest));\n" +
		"return r === undefined ? null : r;\n}"
}

// scriptExpression wraps a script body into an expression applying it to
// args, which must be JSON encodable.
func scriptExpression(script string, args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode script arguments: %w", err)
	}
	return "(() => {\n" +
		"const r = (function() {\n" + script + "\n}).apply(null, " + string(encoded) + ");\n" +
		"return r === undefined ? null : r;\n})()", nil
}

// plainArgs rejects element handles outside the first argument position.
// offset is the position of args[0] in the script's arguments.
func plainArgs(args []any, offset int) ([]any, error) {
	for i, a := range args {
		if _, ok := a.(*element); ok {
			return nil, core.ErrInvalidStep.WithMessagef("element passed as arguments[%d]; only arguments[0] may be an element", i+offset)
		}
	}
	return args, nil
}

// classifyMessage maps DevTools errors onto core errors by message.
func classifyMessage(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, staleMarker),
		strings.Contains(msg, "Could not find object with given id"),
		strings.Contains(msg, "Cannot find context with specified id"):
		return core.ErrStaleElement.WithCause(err)
	case strings.Contains(msg, interceptedMarker), strings.Contains(msg, notInteractableMarker):
		return core.ErrActionRejected.WithCause(err)
	}
	return err
}
