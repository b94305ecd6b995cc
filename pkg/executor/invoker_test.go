package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/driver/mock"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

var (
	nativeClick = flow.Action{Kind: flow.ActionClick, Strategy: flow.StrategyNative}
	scriptClick = flow.Action{Kind: flow.ActionClick, Strategy: flow.StrategyScript}
)

func TestInvoker_NativeClick(t *testing.T) {
	d := newFakeDriver()
	el := ready()

	ack, err := Invoker{Driver: d}.Act(context.Background(), el, nativeClick)
	require.NoError(t, err)
	assert.Equal(t, flow.ActionClick, ack.Kind)
	assert.Equal(t, 1, el.clicks)
	assert.Empty(t, d.scripts)
}

func TestInvoker_NativeClickRejected(t *testing.T) {
	el := &fakeElement{visible: true, interactable: true, clickErr: errors.New("element click intercepted")}

	_, err := Invoker{Driver: newFakeDriver()}.Act(context.Background(), el, nativeClick)
	assert.True(t, errors.Is(err, core.ErrActionRejected), "got %v", err)
}

func TestInvoker_ScriptClick(t *testing.T) {
	d := newFakeDriver()
	el := &fakeElement{} // hidden and not interactable

	_, err := Invoker{Driver: d}.Act(context.Background(), el, scriptClick)
	require.NoError(t, err)
	assert.Equal(t, []string{ScriptClick}, d.scripts)
	assert.Equal(t, 1, el.clicks)
}

func TestInvoker_ReadText(t *testing.T) {
	el := &fakeElement{visible: true, text: "30 ימים"}
	inv := Invoker{Driver: newFakeDriver()}
	read := flow.Action{Kind: flow.ActionReadText, Strategy: flow.StrategyNative, Expect: flow.Expectation{Contains: "30"}}

	ack, err := inv.Act(context.Background(), el, read)
	require.NoError(t, err)
	assert.Equal(t, "30 ימים", ack.Value)

	el.text = "29 ימים"
	ack, err = inv.Act(context.Background(), el, read)
	assert.True(t, errors.Is(err, core.ErrAssertionMismatch))
	assert.Equal(t, "29 ימים", ack.Value)
}

func TestInvoker_ReadAttribute(t *testing.T) {
	inv := Invoker{Driver: newFakeDriver()}
	read := flow.Action{Kind: flow.ActionReadAttribute, Strategy: flow.StrategyNative, Attribute: "href",
		Expect: flow.Expectation{HasSuffix: ".pdf"}}

	ack, err := inv.Act(context.Background(), &fakeElement{attrs: map[string]string{"href": "/p.pdf"}}, read)
	require.NoError(t, err)
	assert.Equal(t, "/p.pdf", ack.Value)

	_, err = inv.Act(context.Background(), &fakeElement{}, read)
	assert.True(t, errors.Is(err, core.ErrAssertionMismatch))
}

func TestInvoker_AssertVisible(t *testing.T) {
	inv := Invoker{Driver: newFakeDriver()}
	assertVisible := flow.Action{Kind: flow.ActionAssertVisible, Strategy: flow.StrategyNative}

	_, err := inv.Act(context.Background(), ready(), assertVisible)
	assert.NoError(t, err)
	_, err = inv.Act(context.Background(), &fakeElement{}, assertVisible)
	assert.True(t, errors.Is(err, core.ErrAssertionMismatch))
}

func TestInvoker_ScriptAssertions(t *testing.T) {
	d := newFakeDriver()
	d.scriptFunc = func(script string, args ...any) (any, error) {
		return script == ScriptExists, nil
	}
	inv := Invoker{Driver: d}

	_, err := inv.Act(context.Background(), &fakeElement{}, flow.Action{Kind: flow.ActionAssertExists, Strategy: flow.StrategyScript})
	assert.NoError(t, err)
	_, err = inv.Act(context.Background(), &fakeElement{}, flow.Action{Kind: flow.ActionAssertVisible, Strategy: flow.StrategyScript})
	assert.True(t, errors.Is(err, core.ErrAssertionMismatch))
}

func TestInvoker_ScriptOnMockPage(t *testing.T) {
	ctx := context.Background()
	d := mock.New(mock.Config{})
	link := d.Add(flow.Locator{By: flow.ByCSS, Value: flow.PolicyLinkCSS}, &mock.Node{
		Hidden:  true,
		Content: "policy",
		Attrs:   map[string]string{"href": "https://example.test/policy.pdf"},
	})
	inv := Invoker{Driver: d}

	_, err := inv.Act(ctx, link, flow.Action{Kind: flow.ActionAssertExists, Strategy: flow.StrategyScript})
	assert.NoError(t, err)

	_, err = inv.Act(ctx, link, flow.Action{Kind: flow.ActionAssertVisible, Strategy: flow.StrategyScript})
	assert.True(t, errors.Is(err, core.ErrAssertionMismatch), "hidden link is not visible: %v", err)

	ack, err := inv.Act(ctx, link, flow.Action{Kind: flow.ActionReadAttribute, Strategy: flow.StrategyScript, Attribute: "href"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/policy.pdf", ack.Value)

	ack, err = inv.Act(ctx, link, flow.Action{Kind: flow.ActionReadText, Strategy: flow.StrategyScript})
	require.NoError(t, err)
	assert.Equal(t, "policy", ack.Value)
}

func TestInvoker_ClickIdempotent(t *testing.T) {
	ctx := context.Background()

	for _, action := range []flow.Action{nativeClick, scriptClick} {
		t.Run(string(action.Strategy), func(t *testing.T) {
			d := mock.New(mock.Config{})
			selected := false
			n := d.Add(flow.Locator{By: flow.ByCSS, Value: flow.DestinationCSS}, &mock.Node{
				OnClick: func() { selected = true },
			})
			inv := Invoker{Driver: d}

			_, first := inv.Act(ctx, n, action)
			_, second := inv.Act(ctx, n, action)

			assert.NoError(t, first)
			assert.NoError(t, second)
			assert.Equal(t, core.CategoryOf(first), core.CategoryOf(second))
			assert.True(t, selected)
		})
	}

	d := mock.New(mock.Config{})
	blocked := d.Add(flow.Locator{By: flow.ByCSS, Value: "button"}, &mock.Node{Obstructed: true})
	_, first := Invoker{Driver: d}.Act(ctx, blocked, nativeClick)
	_, second := Invoker{Driver: d}.Act(ctx, blocked, nativeClick)
	assert.True(t, errors.Is(first, core.ErrActionRejected))
	assert.Equal(t, core.CategoryOf(first), core.CategoryOf(second))
}

func TestInvoker_UnknownStrategy(t *testing.T) {
	_, err := Invoker{Driver: newFakeDriver()}.Act(context.Background(), ready(), flow.Action{Kind: flow.ActionClick, Strategy: "telepathy"})
	assert.True(t, errors.Is(err, core.ErrInvalidStep))
}
