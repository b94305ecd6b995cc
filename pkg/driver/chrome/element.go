package chrome

import (
	"context"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// element is a handle to a DOM node held as a DevTools remote object.
type element struct {
	d   *Driver
	id  runtime.RemoteObjectID
	loc flow.Locator
}

// on binds function calls to the element.
func (e *element) on(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
	return p.WithObjectID(e.id)
}

func (e *element) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.d.run(ctx, chromedp.CallFunctionOn(fn, res, e.on, args...))
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, fnVisible, &ok)
	return ok, err
}

func (e *element) IsInteractable(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, fnInteractable, &ok)
	return ok, err
}

// Click dispatches real mouse events at the element center after a hit
// test, so overlays surface as ErrActionRejected.
func (e *element) Click(ctx context.Context) error {
	var pt struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := e.call(ctx, fnClickPoint, &pt); err != nil {
		return err
	}
	return e.d.run(ctx, chromedp.MouseClickXY(pt.X, pt.Y))
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, fnText, &text)
	return text, err
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var attr struct {
		OK    bool   `json:"ok"`
		Value string `json:"value"`
	}
	if err := e.call(ctx, fnAttribute, &attr, name); err != nil {
		return "", false, err
	}
	return attr.Value, attr.OK, nil
}

func (e *element) String() string {
	return e.loc.String()
}
