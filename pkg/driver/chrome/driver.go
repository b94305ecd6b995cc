// Package chrome implements core.Driver on the Chrome DevTools Protocol
// using chromedp.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
	"github.com/devicelab-dev/wizard-runner/pkg/logger"
)

// Config configures the Chrome launch.
type Config struct {
	Headless     bool
	ExecPath     string // Chrome binary; empty = search PATH
	WindowWidth  int
	WindowHeight int
	NoSandbox    bool // Needed when running as root in containers
}

// Driver implements core.Driver using chromedp.
type Driver struct {
	ctx         context.Context // tab context; cancelled when the browser goes away
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	info        core.PlatformInfo
	quitOnce    sync.Once
	quitErr     error
}

// Opener returns a core.Opener launching Chrome with cfg.
func Opener(cfg Config) core.Opener {
	return func(ctx context.Context) (core.Driver, error) {
		d, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Open launches Chrome and opens a tab.
func Open(ctx context.Context, cfg Config) (*Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debug),
		chromedp.WithErrorf(logger.Error),
	)
	d := &Driver{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		info: core.PlatformInfo{
			Driver:   "chromedp",
			Browser:  "Chrome",
			Headless: cfg.Headless,
		},
	}

	// The first Run starts the browser and must use the tab context itself,
	// otherwise the browser lives only as long as the derived context.
	if err := chromedp.Run(tabCtx); err != nil {
		d.Quit()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, product, _, userAgent, _, err := browser.GetVersion().Do(ctx)
		if err != nil {
			return err
		}
		d.info.Version = product
		d.info.UserAgent = userAgent
		return nil
	}))
	if err != nil {
		logger.Warn("chrome version unavailable: %v", err)
	}
	logger.Info("chrome started: %s (headless=%v)", d.info.Version, cfg.Headless)
	return d, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Headless {
		opts = append(opts,
			chromedp.Flag("headless", false),
			chromedp.Flag("start-maximized", true),
		)
	}
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	return opts
}

// run executes actions in the tab, bounded by ctx.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := d.ctx.Err(); err != nil {
		return core.ErrDriverFault.WithCause(err)
	}

	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return d.classify(ctx, chromedp.Run(runCtx, actions...))
}

// classify maps a chromedp error onto the core error taxonomy.
func (d *Driver) classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case d.ctx.Err() != nil,
		errors.Is(err, chromedp.ErrChannelClosed),
		errors.Is(err, chromedp.ErrInvalidTarget),
		errors.Is(err, chromedp.ErrInvalidContext):
		return core.ErrDriverFault.WithCause(err)
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return classifyMessage(err)
}

// Navigate loads url and waits for the load event.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	logger.Debug("navigate %s", url)
	return d.run(ctx, chromedp.Navigate(url))
}

// FindElement implements core.Driver.
func (d *Driver) FindElement(ctx context.Context, loc flow.Locator) (core.Element, error) {
	expr, err := findExpression(loc)
	if err != nil {
		return nil, err
	}
	var obj *runtime.RemoteObject
	err = d.run(ctx, chromedp.Evaluate(expr, &obj))
	if err != nil && !errors.Is(err, chromedp.ErrJSNull) {
		return nil, err
	}
	if err != nil || obj == nil || obj.ObjectID == "" {
		return nil, core.ErrResolutionMiss.WithMessage("no element matches " + loc.String())
	}
	return &element{d: d, id: obj.ObjectID, loc: loc}, nil
}

// ExecuteScript runs script as a function body. Only arguments[0] may be
// an element; the remaining arguments must be JSON encodable.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	var res any
	var action chromedp.Action

	if el, ok := firstElement(args); ok {
		rest, err := plainArgs(args[1:], 1)
		if err != nil {
			return nil, err
		}
		action = chromedp.CallFunctionOn(elementFunction(script), &res, el.on, rest...)
	} else {
		plain, err := plainArgs(args, 0)
		if err != nil {
			return nil, err
		}
		expr, err := scriptExpression(script, plain)
		if err != nil {
			return nil, err
		}
		action = chromedp.Evaluate(expr, &res)
	}

	err := d.run(ctx, action)
	if errors.Is(err, chromedp.ErrJSNull) || errors.Is(err, chromedp.ErrJSUndefined) {
		return nil, nil
	}
	return res, err
}

func firstElement(args []any) (*element, bool) {
	if len(args) == 0 {
		return nil, false
	}
	el, ok := args[0].(*element)
	return el, ok
}

// Screenshot captures the viewport as PNG.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Quit closes the browser. Later calls return the first result.
func (d *Driver) Quit() error {
	d.quitOnce.Do(func() {
		err := chromedp.Cancel(d.ctx)
		d.allocCancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			d.quitErr = err
		}
		logger.Debug("chrome closed")
	})
	return d.quitErr
}

// PlatformInfo implements core.Describer.
func (d *Driver) PlatformInfo() core.PlatformInfo {
	return d.info
}
