package core

import (
	"context"

	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// Driver is the browser/page capability the engine runs against.
// Implementations: chromedp, playwright, mock.
// The executor handles synchronization and fallbacks; Driver only performs
// single operations and never waits on its own beyond ctx.
type Driver interface {
	// Navigate loads url in the page.
	Navigate(ctx context.Context, url string) error

	// FindElement returns the first element matching loc.
	// No match is reported as ErrResolutionMiss.
	FindElement(ctx context.Context, loc flow.Locator) (Element, error)

	// ExecuteScript runs a function body in the page. Element arguments
	// are exposed as arguments[i].
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)

	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Quit releases the browser session. Safe to call more than once.
	Quit() error
}

// Element is a live handle to a node in the page.
// A detached node is reported as ErrStaleElement.
type Element interface {
	IsVisible(ctx context.Context) (bool, error)
	IsInteractable(ctx context.Context) (bool, error)
	// Click performs a native click. A click intercepted by another node or
	// on a disabled element is reported as ErrActionRejected.
	Click(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// Opener starts a browser session. The returned Driver is owned by the caller.
type Opener func(ctx context.Context) (Driver, error)

// PlatformInfo describes the browser a run executed in.
type PlatformInfo struct {
	Driver    string `json:"driver"`              // chromedp, playwright, mock
	Browser   string `json:"browser"`             // e.g. "Chrome"
	Headless  bool   `json:"headless"`            // Launched without a window
	Version   string `json:"version,omitempty"`   // Browser version if known
	UserAgent string `json:"userAgent,omitempty"` // Reported user agent
}

// Describer is implemented by drivers that can report their platform.
type Describer interface {
	PlatformInfo() PlatformInfo
}
