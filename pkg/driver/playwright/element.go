package playwright

import (
	"context"

	pw "github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

const fnAttribute = `(el, name) => {
	if (!el.isConnected) { throw new Error("Element is not attached to the DOM"); }
	return el.hasAttribute(name) ? el.getAttribute(name) : null;
}`

// element wraps a Playwright element handle.
type element struct {
	d      *Driver
	handle pw.ElementHandle
	loc    flow.Locator
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	if err := e.d.check(ctx); err != nil {
		return false, err
	}
	ok, err := e.handle.IsVisible()
	return ok, e.d.classify(ctx, err)
}

func (e *element) IsInteractable(ctx context.Context) (bool, error) {
	visible, err := e.IsVisible(ctx)
	if err != nil || !visible {
		return false, err
	}
	ok, err := e.handle.IsEnabled()
	return ok, e.d.classify(ctx, err)
}

// Click runs Playwright's actionability checks; a click another element
// would receive surfaces as ErrActionRejected.
func (e *element) Click(ctx context.Context) error {
	if err := e.d.check(ctx); err != nil {
		return err
	}
	err := e.handle.Click(pw.ElementHandleClickOptions{Timeout: e.d.timeout(ctx)})
	return e.d.classify(ctx, err)
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.d.check(ctx); err != nil {
		return "", err
	}
	text, err := e.handle.InnerText()
	return text, e.d.classify(ctx, err)
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.d.check(ctx); err != nil {
		return "", false, err
	}
	v, err := e.handle.Evaluate(fnAttribute, name)
	if err != nil {
		return "", false, e.d.classify(ctx, err)
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (e *element) String() string {
	return e.loc.String()
}
