package chrome

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

func TestFindExpression(t *testing.T) {
	css, err := findExpression(flow.Locator{By: flow.ByCSS, Value: `a[data-hrl-bo='x'][href$=".pdf"]`})
	require.NoError(t, err)
	assert.Equal(t, `document.querySelector("a[data-hrl-bo='x'][href$=\".pdf\"]")`, css)

	xpath, err := findExpression(flow.Locator{By: flow.ByXPath, Value: "//button[@data-hrl-bo='2025-01-15']"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(xpath, `document.evaluate("//button[@data-hrl-bo='2025-01-15']", document`))
	assert.Contains(t, xpath, "FIRST_ORDERED_NODE_TYPE")

	_, err = findExpression(flow.Locator{By: "id", Value: "x"})
	assert.True(t, errors.Is(err, core.ErrInvalidStep))
}

func TestElementFunction(t *testing.T) {
	fn := elementFunction("arguments[0].click();")
	assert.True(t, strings.HasPrefix(fn, "function(...rest)"))
	assert.Contains(t, fn, "arguments[0].click();")
	assert.Contains(t, fn, "[this].concat(rest)")
	assert.Contains(t, fn, "undefined ? null")
}

func TestScriptExpression(t *testing.T) {
	expr, err := scriptExpression("return arguments[0] + arguments[1];", []any{1, "two"})
	require.NoError(t, err)
	assert.Contains(t, expr, `.apply(null, [1,"two"])`)

	expr, err = scriptExpression("return 1;", nil)
	require.NoError(t, err)
	assert.Contains(t, expr, ".apply(null, [])")

	_, err = scriptExpression("return 1;", []any{make(chan int)})
	assert.Error(t, err)
}

func TestPlainArgs(t *testing.T) {
	args, err := plainArgs([]any{"href"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{"href"}, args)

	_, err = plainArgs([]any{"x", &element{}}, 1)
	assert.True(t, errors.Is(err, core.ErrInvalidStep))
	assert.Contains(t, err.Error(), "arguments[2]")
}

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"exception: Error: " + staleMarker, core.ErrStaleElement},
		{"Could not find object with given id (-32000)", core.ErrStaleElement},
		{"Error: element click intercepted: div.overlay would receive the click", core.ErrActionRejected},
		{"Error: element not interactable: disabled", core.ErrActionRejected},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.True(t, errors.Is(classifyMessage(errors.New(tt.msg)), tt.want))
		})
	}

	other := errors.New("SyntaxError: unexpected token")
	assert.Same(t, other, classifyMessage(other))
}

func TestAllocatorOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)
	assert.Len(t, allocatorOptions(Config{Headless: true}), base)
	assert.Len(t, allocatorOptions(Config{}), base+2)
	assert.Len(t, allocatorOptions(Config{Headless: true, NoSandbox: true, ExecPath: "/usr/bin/chromium", WindowWidth: 1280, WindowHeight: 900}), base+3)
	assert.Len(t, allocatorOptions(Config{Headless: true, WindowWidth: 1280}), base, "both dimensions are required")
}

const overlayPage = `<!doctype html>
<html><body>
<button id="free" onclick="this.dataset.clicked='yes'">free</button>
<div style="position:relative">
  <button id="covered" data-hrl-bo="%s" onclick="this.dataset.clicked='yes'">15</button>
  <div style="position:absolute;inset:0;background:rgba(0,0,0,.1)"></div>
</div>
<a id="hidden" style="display:none" href="/policy.pdf">policy</a>
</body></html>`

// TestChrome_Integration drives a real browser. Set WIZARD_RUNNER_CHROME=1
// to run it.
func TestChrome_Integration(t *testing.T) {
	if os.Getenv("WIZARD_RUNNER_CHROME") == "" {
		t.Skip("WIZARD_RUNNER_CHROME not set, skipping browser test")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, overlayPage, "2025-01-15")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	d, err := Open(ctx, Config{Headless: true, NoSandbox: true})
	require.NoError(t, err)
	defer d.Quit()

	require.NoError(t, d.Navigate(ctx, srv.URL))

	free, err := d.FindElement(ctx, flow.Locator{By: flow.ByCSS, Value: "#free"})
	require.NoError(t, err)
	require.NoError(t, free.Click(ctx))

	covered, err := d.FindElement(ctx, flow.Locator{By: flow.ByXPath, Value: "//button[@data-hrl-bo='2025-01-15']"})
	require.NoError(t, err)
	assert.True(t, errors.Is(covered.Click(ctx), core.ErrActionRejected))
	_, err = d.ExecuteScript(ctx, "arguments[0].click();", covered)
	require.NoError(t, err)
	clicked, _, err := covered.Attribute(ctx, "data-clicked")
	require.NoError(t, err)
	assert.Equal(t, "yes", clicked)

	hidden, err := d.FindElement(ctx, flow.Locator{By: flow.ByCSS, Value: "#hidden"})
	require.NoError(t, err)
	visible, err := hidden.IsVisible(ctx)
	require.NoError(t, err)
	assert.False(t, visible)
	href, ok, err := hidden.Attribute(ctx, "href")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/policy.pdf", href)

	_, err = d.FindElement(ctx, flow.Locator{By: flow.ByCSS, Value: "#missing"})
	assert.True(t, errors.Is(err, core.ErrResolutionMiss))

	png, err := d.Screenshot(ctx)
	require.NoError(t, err)
	assert.True(t, len(png) > 8)

	require.NoError(t, d.Quit())
	_, err = d.FindElement(ctx, flow.Locator{By: flow.ByCSS, Value: "#free"})
	assert.True(t, errors.Is(err, core.ErrDriverFault))
}
