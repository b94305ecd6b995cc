// Package mock provides an in-memory browser for testing without Chrome.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
	"github.com/devicelab-dev/wizard-runner/pkg/jsengine"
)

// Config configures mock driver behavior.
type Config struct {
	// Fault makes every call after the given number of FindElement calls
	// fail with ErrDriverFault. 0 = never.
	FaultAfterFinds int
	// NavigateErr is returned by Navigate.
	NavigateErr error
	// ScreenshotErr is returned by Screenshot.
	ScreenshotErr error
}

// Calls counts driver invocations.
type Calls struct {
	Navigate    int
	Find        int
	Script      int
	Screenshot  int
	Quit        int
	NativeClick int
	ScriptClick int
}

// Driver is a mock implementation of core.Driver for testing.
type Driver struct {
	Config Config

	mu     sync.Mutex
	nodes  map[flow.Locator]*Node
	url    string
	calls  Calls
	quit   bool
	faulty bool
	engine *jsengine.Engine
}

// New creates a new mock driver.
func New(cfg Config) *Driver {
	d := &Driver{
		Config: cfg,
		nodes:  make(map[flow.Locator]*Node),
	}
	d.engine = jsengine.New(document{d})
	return d
}

// Add registers a node under loc and returns it.
func (d *Driver) Add(loc flow.Locator, n *Node) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	n.driver = d
	d.nodes[loc] = n
	return n
}

// Node returns the node registered under loc, or nil.
func (d *Driver) Node(loc flow.Locator) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nodes[loc]
}

// Calls returns a snapshot of the call counters.
func (d *Driver) Calls() Calls {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// URL returns the last navigated URL.
func (d *Driver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Kill simulates the browser going away.
func (d *Driver) Kill() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faulty = true
}

// check must be called with mu held.
func (d *Driver) check(ctx context.Context) error {
	if d.quit || d.faulty {
		return core.ErrDriverFault
	}
	return ctx.Err()
}

// Navigate records the URL.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.Navigate++
	if err := d.check(ctx); err != nil {
		return err
	}
	if d.Config.NavigateErr != nil {
		return d.Config.NavigateErr
	}
	d.url = url
	return nil
}

// FindElement returns the registered node if it is currently in the DOM.
func (d *Driver) FindElement(ctx context.Context, loc flow.Locator) (core.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.Find++
	if d.Config.FaultAfterFinds > 0 && d.calls.Find > d.Config.FaultAfterFinds {
		d.faulty = true
	}
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	n, ok := d.nodes[loc]
	if !ok || !n.inDOM() {
		return nil, core.ErrResolutionMiss.WithMessage("no element matches " + loc.String())
	}
	return n, nil
}

// ExecuteScript runs script in the page's JS engine.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	d.mu.Lock()
	d.calls.Script++
	err := d.check(ctx)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	jsArgs := make([]any, len(args))
	for i, a := range args {
		if n, ok := a.(*Node); ok {
			jsArgs[i] = jsengine.Node(n)
			continue
		}
		jsArgs[i] = a
	}
	return d.engine.Call(script, jsArgs...)
}

// Screenshot returns a mock PNG image.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.Screenshot++
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	if d.Config.ScreenshotErr != nil {
		return nil, d.Config.ScreenshotErr
	}
	// Minimal valid PNG (1x1 transparent pixel)
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
		0x42, 0x60, 0x82,
	}, nil
}

// Quit closes the session. Later calls fail with ErrDriverFault.
func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.Quit++
	d.quit = true
	return nil
}

// PlatformInfo returns mock platform info.
func (d *Driver) PlatformInfo() core.PlatformInfo {
	return core.PlatformInfo{
		Driver:   "mock",
		Browser:  "simulated",
		Headless: true,
	}
}

// document serves document.querySelector from CSS-registered nodes.
type document struct{ d *Driver }

func (doc document) QuerySelector(css string) jsengine.Node {
	doc.d.mu.Lock()
	defer doc.d.mu.Unlock()
	n, ok := doc.d.nodes[flow.Locator{By: flow.ByCSS, Value: css}]
	if !ok || !n.inDOM() {
		return nil
	}
	return n
}

// Node is a fake DOM element. Zero value: attached, visible, enabled.
type Node struct {
	Content string
	Attrs   map[string]string

	Hidden     bool // Rendered with display:none
	Disabled   bool // Ignores input
	Obstructed bool // Covered by an overlay; native clicks are intercepted

	// OnClick runs on every accepted click, native or script.
	OnClick func()

	driver   *Driver
	absent   bool
	appearAt time.Time
	detached bool
	native   int
	script   int
}

// Absent creates a node that is not in the DOM until Show is called.
func Absent() *Node {
	return &Node{absent: true}
}

// Show inserts the node into the DOM after delay.
func (n *Node) Show(delay time.Duration) {
	n.absent = false
	n.appearAt = time.Now().Add(delay)
}

// Detach removes the node; existing handles go stale.
func (n *Node) Detach() { n.detached = true }

// NativeClicks returns accepted native clicks.
func (n *Node) NativeClicks() int { return n.native }

// ScriptClicks returns accepted script clicks.
func (n *Node) ScriptClicks() int { return n.script }

func (n *Node) inDOM() bool {
	return !n.absent && !n.detached && !time.Now().Before(n.appearAt)
}

func (n *Node) state(ctx context.Context) error {
	if n.driver != nil {
		n.driver.mu.Lock()
		err := n.driver.check(ctx)
		n.driver.mu.Unlock()
		if err != nil {
			return err
		}
	}
	if n.detached {
		return core.ErrStaleElement
	}
	return nil
}

// IsVisible implements core.Element.
func (n *Node) IsVisible(ctx context.Context) (bool, error) {
	if err := n.state(ctx); err != nil {
		return false, err
	}
	return !n.Hidden, nil
}

// IsInteractable implements core.Element.
func (n *Node) IsInteractable(ctx context.Context) (bool, error) {
	if err := n.state(ctx); err != nil {
		return false, err
	}
	return !n.Hidden && !n.Disabled, nil
}

// Click implements core.Element with browser-like interception checks.
func (n *Node) Click(ctx context.Context) error {
	if err := n.state(ctx); err != nil {
		return err
	}
	if n.driver != nil {
		n.driver.mu.Lock()
		n.driver.calls.NativeClick++
		n.driver.mu.Unlock()
	}
	switch {
	case n.Hidden:
		return core.ErrActionRejected.WithMessage("element not interactable: not visible")
	case n.Disabled:
		return core.ErrActionRejected.WithMessage("element not interactable: disabled")
	case n.Obstructed:
		return core.ErrActionRejected.WithMessage("element click intercepted: other element would receive the click")
	}
	n.native++
	if n.OnClick != nil {
		n.OnClick()
	}
	return nil
}

// Text implements core.Element. Hidden nodes have no rendered text.
func (n *Node) Text(ctx context.Context) (string, error) {
	if err := n.state(ctx); err != nil {
		return "", err
	}
	if n.Hidden {
		return "", nil
	}
	return n.Content, nil
}

// Attribute implements core.Element.
func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := n.state(ctx); err != nil {
		return "", false, err
	}
	v, ok := n.GetAttribute(name)
	return v, ok, nil
}

// Attached implements jsengine.Node.
func (n *Node) Attached() bool { return !n.detached }

// Visible implements jsengine.Node.
func (n *Node) Visible() bool { return !n.Hidden }

// TextContent implements jsengine.Node.
func (n *Node) TextContent() string { return n.Content }

// GetAttribute implements jsengine.Node.
func (n *Node) GetAttribute(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// DispatchClick implements jsengine.Node: no visibility or overlay checks.
func (n *Node) DispatchClick() error {
	if n.detached {
		return core.ErrStaleElement
	}
	if n.driver != nil {
		n.driver.mu.Lock()
		n.driver.calls.ScriptClick++
		n.driver.mu.Unlock()
	}
	n.script++
	if n.OnClick != nil {
		n.OnClick()
	}
	return nil
}
