// Package playwright implements core.Driver using playwright-go.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
	"github.com/devicelab-dev/wizard-runner/pkg/logger"
)

// DefaultActionTimeout bounds a single Playwright call when ctx has no deadline.
const DefaultActionTimeout = 5 * time.Second

// Config configures the Chromium launch.
type Config struct {
	Headless      bool
	ExecPath      string
	WindowWidth   int
	WindowHeight  int
	NoSandbox     bool
	Install       bool          // Download the driver and Chromium if missing
	ActionTimeout time.Duration // 0 = DefaultActionTimeout
}

// Driver implements core.Driver on a Playwright Chromium page.
type Driver struct {
	pw      *pw.Playwright
	browser pw.Browser
	page    pw.Page
	cfg     Config
	info    core.PlatformInfo

	mu       sync.Mutex
	closed   bool
	quitOnce sync.Once
	quitErr  error
}

// Opener returns a core.Opener launching Chromium with cfg.
func Opener(cfg Config) core.Opener {
	return func(ctx context.Context) (core.Driver, error) {
		d, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Open starts Playwright, launches Chromium and opens a page.
func Open(ctx context.Context, cfg Config) (*Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Install {
		if err := pw.Install(&pw.RunOptions{Browsers: []string{"chromium"}, Verbose: false}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	instance, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := instance.Chromium.Launch(launchOptions(cfg))
	if err != nil {
		instance.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	page, err := browser.NewPage(pageOptions(cfg))
	if err != nil {
		browser.Close()
		instance.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}

	d := &Driver{
		pw:      instance,
		browser: browser,
		page:    page,
		cfg:     cfg,
		info: core.PlatformInfo{
			Driver:   "playwright",
			Browser:  "Chromium",
			Headless: cfg.Headless,
			Version:  browser.Version(),
		},
	}
	logger.Info("chromium started via playwright: %s (headless=%v)", d.info.Version, cfg.Headless)
	return d, nil
}

func launchOptions(cfg Config) pw.BrowserTypeLaunchOptions {
	opts := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(cfg.Headless),
	}
	if cfg.ExecPath != "" {
		opts.ExecutablePath = pw.String(cfg.ExecPath)
	}
	if cfg.NoSandbox {
		opts.ChromiumSandbox = pw.Bool(false)
		opts.Args = append(opts.Args, "--no-sandbox")
	}
	if !cfg.Headless {
		opts.Args = append(opts.Args, "--start-maximized")
	}
	return opts
}

func pageOptions(cfg Config) pw.BrowserNewPageOptions {
	var opts pw.BrowserNewPageOptions
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts.Viewport = &pw.Size{Width: cfg.WindowWidth, Height: cfg.WindowHeight}
	}
	return opts
}

// timeout converts the remaining ctx budget to Playwright milliseconds.
func (d *Driver) timeout(ctx context.Context) *float64 {
	return timeoutMillis(ctx, d.cfg.ActionTimeout)
}

func timeoutMillis(ctx context.Context, def time.Duration) *float64 {
	if def <= 0 {
		def = DefaultActionTimeout
	}
	budget := def
	if deadline, ok := ctx.Deadline(); ok {
		budget = min(budget, time.Until(deadline))
	}
	// Playwright treats 0 as no timeout.
	return pw.Float(max(1, float64(budget.Milliseconds())))
}

// check fails fast on a closed session or a done ctx.
func (d *Driver) check(ctx context.Context) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed || d.page.IsClosed() {
		return core.ErrDriverFault.WithMessage("browser session closed")
	}
	return ctx.Err()
}

// classify maps a Playwright error onto the core error taxonomy.
func (d *Driver) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pw.ErrTargetClosed) || d.page.IsClosed() {
		return core.ErrDriverFault.WithCause(err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return classifyMessage(err)
}

func classifyMessage(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not attached to the DOM"),
		strings.Contains(msg, "Element is detached"):
		return core.ErrStaleElement.WithCause(err)
	case strings.Contains(msg, "intercepts pointer events"),
		strings.Contains(msg, "element is not visible"),
		strings.Contains(msg, "element is not enabled"),
		strings.Contains(msg, "element is outside of the viewport"):
		return core.ErrActionRejected.WithCause(err)
	case errors.Is(err, pw.ErrTimeout):
		return core.ErrWaitTimeout.WithCause(err)
	}
	return err
}

// selectorFor returns the Playwright selector engine form of loc.
func selectorFor(loc flow.Locator) (string, error) {
	switch loc.By {
	case flow.ByCSS:
		return "css=" + loc.Value, nil
	case flow.ByXPath:
		return "xpath=" + loc.Value, nil
	}
	return "", core.ErrInvalidStep.WithMessagef("unsupported locator kind %q", loc.By)
}

// Navigate implements core.Driver.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	logger.Debug("navigate %s", url)
	_, err := d.page.Goto(url, pw.PageGotoOptions{
		Timeout:   timeoutMillis(ctx, time.Minute),
		WaitUntil: pw.WaitUntilStateLoad,
	})
	return d.classify(ctx, err)
}

// FindElement implements core.Driver. It never waits for the element.
func (d *Driver) FindElement(ctx context.Context, loc flow.Locator) (core.Element, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	selector, err := selectorFor(loc)
	if err != nil {
		return nil, err
	}

	first := d.page.Locator(selector).First()
	n, err := first.Count()
	if err != nil {
		return nil, d.classify(ctx, err)
	}
	if n == 0 {
		return nil, core.ErrResolutionMiss.WithMessage("no element matches " + loc.String())
	}
	handle, err := first.ElementHandle(pw.LocatorElementHandleOptions{Timeout: d.timeout(ctx)})
	if err != nil {
		// Removed between Count and ElementHandle.
		if errors.Is(err, pw.ErrTimeout) {
			return nil, core.ErrResolutionMiss.WithCause(err)
		}
		return nil, d.classify(ctx, err)
	}
	return &element{d: d, handle: handle, loc: loc}, nil
}

// ExecuteScript implements core.Driver. Element arguments are passed as
// Playwright element handles.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	res, err := d.page.Evaluate(scriptFunction(script), scriptArgs(args))
	return res, d.classify(ctx, err)
}

func scriptFunction(script string) string {
	return "(args) => {\n" +
		"const r = (function() {\n" + script + "\n}).apply(null, args);\n" +
		"return r === undefined ? null : r;\n}"
}

func scriptArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(*element); ok {
			out[i] = el.handle
			continue
		}
		out[i] = a
	}
	return out
}

// Screenshot implements core.Driver.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	buf, err := d.page.Screenshot(pw.PageScreenshotOptions{
		Type:    pw.ScreenshotTypePng,
		Timeout: d.timeout(ctx),
	})
	return buf, d.classify(ctx, err)
}

// Quit closes the browser and stops Playwright.
func (d *Driver) Quit() error {
	d.quitOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		if err := d.browser.Close(); err != nil && !errors.Is(err, pw.ErrTargetClosed) {
			d.quitErr = fmt.Errorf("close browser: %w", err)
		}
		if err := d.pw.Stop(); err != nil && d.quitErr == nil {
			d.quitErr = fmt.Errorf("stop playwright: %w", err)
		}
		logger.Debug("playwright stopped")
	})
	return d.quitErr
}

// PlatformInfo implements core.Describer.
func (d *Driver) PlatformInfo() core.PlatformInfo {
	return d.info
}
