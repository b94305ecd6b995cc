package executor

import (
	"context"
	"sync"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// fakeElement implements core.Element for testing.
type fakeElement struct {
	visible      bool
	interactable bool
	text         string
	attrs        map[string]string
	clickErr     error
	panicOnClick bool
	clicks       int
}

func (e *fakeElement) IsVisible(context.Context) (bool, error)      { return e.visible, nil }
func (e *fakeElement) IsInteractable(context.Context) (bool, error) { return e.interactable, nil }
func (e *fakeElement) Click(context.Context) error {
	if e.panicOnClick {
		panic("element handler exploded")
	}
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	return nil
}
func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }
func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func ready() *fakeElement { return &fakeElement{visible: true, interactable: true} }

// fakeDriver implements core.Driver for testing.
type fakeDriver struct {
	mu          sync.Mutex
	elements    map[string]*fakeElement
	findErr     error
	navigateErr error
	scriptFunc  func(script string, args ...any) (any, error)

	finds       []string
	scripts     []string
	navigations int
	screenshots int
	quits       int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{elements: make(map[string]*fakeElement)}
}

func (d *fakeDriver) add(value string, el *fakeElement) *fakeElement {
	d.elements[value] = el
	return el
}

func (d *fakeDriver) Navigate(context.Context, string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigations++
	return d.navigateErr
}

func (d *fakeDriver) FindElement(_ context.Context, loc flow.Locator) (core.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finds = append(d.finds, loc.Value)
	if d.findErr != nil {
		return nil, d.findErr
	}
	el, ok := d.elements[loc.Value]
	if !ok {
		return nil, core.ErrResolutionMiss
	}
	return el, nil
}

func (d *fakeDriver) ExecuteScript(_ context.Context, script string, args ...any) (any, error) {
	d.mu.Lock()
	d.scripts = append(d.scripts, script)
	fn := d.scriptFunc
	d.mu.Unlock()
	if fn != nil {
		return fn(script, args...)
	}
	if script == ScriptClick {
		if el, ok := args[0].(*fakeElement); ok {
			el.clicks++
		}
	}
	return true, nil
}

func (d *fakeDriver) Screenshot(context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.screenshots++
	return []byte("png"), nil
}

func (d *fakeDriver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quits++
	return nil
}

func (d *fakeDriver) found(value string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, f := range d.finds {
		if f == value {
			n++
		}
	}
	return n
}

func opener(d core.Driver) core.Opener {
	return func(context.Context) (core.Driver, error) { return d, nil }
}
