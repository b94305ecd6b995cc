// Package jsengine runs page scripts against an in-memory document.
// It backs script dispatch in the simulated browser.
package jsengine

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/devicelab-dev/wizard-runner/pkg/logger"
)

// Node is a page element as seen by scripts.
type Node interface {
	Attached() bool
	Visible() bool
	TextContent() string
	GetAttribute(name string) (string, bool)
	// DispatchClick fires the element's click handlers without any
	// visibility or interactability checks.
	DispatchClick() error
}

// Document resolves document.querySelector calls.
type Document interface {
	// QuerySelector returns the first matching node or nil.
	QuerySelector(css string) Node
}

// Engine wraps a goja runtime with a minimal DOM surface:
// document.querySelector, window.getComputedStyle and element objects with
// click, getAttribute, textContent, innerText, isConnected, offsetWidth and
// offsetHeight.
type Engine struct {
	runtime *goja.Runtime
	doc     Document
	nodes   map[*goja.Object]Node
	goErr   error
	mu      sync.Mutex
}

// New creates a new JS engine bound to doc.
func New(doc Document) *Engine {
	e := &Engine{
		runtime: goja.New(),
		doc:     doc,
		nodes:   make(map[*goja.Object]Node),
	}
	e.setupBuiltins()
	return e
}

// setupBuiltins registers all built-in functions and objects
func (e *Engine) setupBuiltins() {
	e.setupConsole()

	document := e.runtime.NewObject()
	document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 || e.doc == nil {
			return goja.Null()
		}
		n := e.doc.QuerySelector(call.Arguments[0].String())
		if n == nil {
			return goja.Null()
		}
		return e.wrap(n)
	})
	e.runtime.Set("document", document)

	window := e.runtime.NewObject()
	window.Set("getComputedStyle", func(call goja.FunctionCall) goja.Value {
		style := e.runtime.NewObject()
		style.Set("display", "block")
		style.Set("visibility", "visible")
		if len(call.Arguments) > 0 {
			if n := e.unwrap(call.Arguments[0]); n != nil && !n.Visible() {
				style.Set("display", "none")
			}
		}
		return style
	})
	e.runtime.Set("window", window)
}

// setupConsole routes console.log and friends to the run log
func (e *Engine) setupConsole() {
	makeConsoleFunc := func(log func(string, ...any)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]any, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}
			log("page console: %v", args)
			return goja.Undefined()
		}
	}

	console := e.runtime.NewObject()
	console.Set("log", makeConsoleFunc(logger.Debug))
	console.Set("error", makeConsoleFunc(logger.Error))
	console.Set("warn", makeConsoleFunc(logger.Warn))
	e.runtime.Set("console", console)
}

// wrap exposes n to scripts
func (e *Engine) wrap(n Node) *goja.Object {
	obj := e.runtime.NewObject()
	e.nodes[obj] = n

	obj.Set("click", func(goja.FunctionCall) goja.Value {
		if err := n.DispatchClick(); err != nil {
			e.goErr = err
			panic(e.runtime.NewGoError(err))
		}
		return goja.Undefined()
	})
	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Null()
		}
		v, ok := n.GetAttribute(call.Arguments[0].String())
		if !ok {
			return goja.Null()
		}
		return e.runtime.ToValue(v)
	})

	text := e.runtime.ToValue(func() string { return n.TextContent() })
	obj.DefineAccessorProperty("textContent", text, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	obj.DefineAccessorProperty("innerText", e.runtime.ToValue(func() string {
		if !n.Visible() {
			return ""
		}
		return n.TextContent()
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	obj.DefineAccessorProperty("isConnected", e.runtime.ToValue(func() bool {
		return n.Attached()
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	size := e.runtime.ToValue(func() int {
		if n.Attached() && n.Visible() {
			return 100
		}
		return 0
	})
	obj.DefineAccessorProperty("offsetWidth", size, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	obj.DefineAccessorProperty("offsetHeight", size, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	return obj
}

func (e *Engine) unwrap(v goja.Value) Node {
	if v == nil || goja.IsNull(v) || goja.IsUndefined(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	return e.nodes[obj]
}

// Call runs body as a function with args bound to arguments[i].
// Node arguments become element objects; a nil Node becomes null.
func (e *Engine) Call(body string, args ...any) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.goErr = nil
	clear(e.nodes)

	fnVal, err := e.runtime.RunString("(function() {\n" + body + "\n})")
	if err != nil {
		return nil, fmt.Errorf("JS compile error: %w", err)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("JS compile error: script is not a function body")
	}

	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case Node:
			if v == nil {
				jsArgs[i] = goja.Null()
			} else {
				jsArgs[i] = e.wrap(v)
			}
		case nil:
			jsArgs[i] = goja.Null()
		default:
			jsArgs[i] = e.runtime.ToValue(v)
		}
	}

	result, err := fn(goja.Undefined(), jsArgs...)
	if err != nil {
		if e.goErr != nil {
			return nil, e.goErr
		}
		return nil, fmt.Errorf("JS runtime error: %w", err)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

// Eval evaluates a JavaScript expression and returns the result
func (e *Engine) Eval(script string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("JS eval error: %w", err)
	}
	return result.Export(), nil
}
