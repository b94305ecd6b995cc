package jsengine

import (
	"errors"
	"testing"
)

type fakeNode struct {
	text     string
	attrs    map[string]string
	hidden   bool
	detached bool
	clicks   int
	clickErr error
}

func (n *fakeNode) Attached() bool      { return !n.detached }
func (n *fakeNode) Visible() bool       { return !n.hidden }
func (n *fakeNode) TextContent() string { return n.text }
func (n *fakeNode) GetAttribute(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}
func (n *fakeNode) DispatchClick() error {
	if n.clickErr != nil {
		return n.clickErr
	}
	n.clicks++
	return nil
}

type fakeDoc map[string]*fakeNode

func (d fakeDoc) QuerySelector(css string) Node {
	if n, ok := d[css]; ok {
		return n
	}
	return nil
}

func TestEval(t *testing.T) {
	engine := New(nil)

	tests := []struct {
		name     string
		script   string
		expected any
	}{
		{"simple number", "1 + 2", int64(3)},
		{"string concat", "'hello' + ' ' + 'world'", "hello world"},
		{"boolean", "true && false", false},
		{"null coalescing", "null ?? 'default'", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Eval(tt.script)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, result, result)
			}
		})
	}
}

func TestCall_ClickDispatch(t *testing.T) {
	n := &fakeNode{hidden: true}
	engine := New(nil)

	result, err := engine.Call("arguments[0].click();", n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %v", result)
	}
	if n.clicks != 1 {
		t.Errorf("clicks = %d, want 1 (hidden nodes still receive script clicks)", n.clicks)
	}
}

func TestCall_ClickErrorPropagates(t *testing.T) {
	want := errors.New("node detached")
	n := &fakeNode{clickErr: want}
	engine := New(nil)

	_, err := engine.Call("arguments[0].click();", n)
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestCall_ReadProperties(t *testing.T) {
	n := &fakeNode{text: "30 days", attrs: map[string]string{"href": "/terms.pdf"}}
	engine := New(nil)

	tests := []struct {
		name     string
		script   string
		args     []any
		expected any
	}{
		{"textContent", "return arguments[0].textContent;", []any{n}, "30 days"},
		{"getAttribute", "return arguments[0].getAttribute(arguments[1]);", []any{n, "href"}, "/terms.pdf"},
		{"missing attribute", "return arguments[0].getAttribute('id');", []any{n}, nil},
		{"isConnected", "return arguments[0].isConnected;", []any{n}, true},
		{"null argument", "return arguments[0] != null;", []any{nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Call(tt.script, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, result, result)
			}
		})
	}
}

func TestCall_ComputedStyle(t *testing.T) {
	script := `var el = arguments[0];
var style = window.getComputedStyle(el);
return style.display !== 'none' && el.offsetWidth > 0;`
	engine := New(nil)

	visible, err := engine.Call(script, &fakeNode{})
	if err != nil || visible != true {
		t.Errorf("visible node: got %v, %v", visible, err)
	}
	hidden, err := engine.Call(script, &fakeNode{hidden: true})
	if err != nil || hidden != false {
		t.Errorf("hidden node: got %v, %v", hidden, err)
	}
}

func TestCall_QuerySelector(t *testing.T) {
	doc := fakeDoc{"a[href$='.pdf']": &fakeNode{}}
	engine := New(doc)

	found, err := engine.Call("return document.querySelector(\"a[href$='.pdf']\") !== null;")
	if err != nil || found != true {
		t.Errorf("existing selector: got %v, %v", found, err)
	}
	missing, err := engine.Call("return document.querySelector('div.none') !== null;")
	if err != nil || missing != false {
		t.Errorf("missing selector: got %v, %v", missing, err)
	}
}

func TestCall_SyntaxError(t *testing.T) {
	engine := New(nil)
	if _, err := engine.Call("return (;"); err == nil {
		t.Error("expected compile error")
	}
}

func TestCall_ConsoleDoesNotFail(t *testing.T) {
	engine := New(nil)
	if _, err := engine.Call("console.log('hi', arguments.length); return 1;", 5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
