package executor

import (
	"context"
	"time"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
)

// DefaultPollInterval is used when WaitPolicy.Interval is not set.
const DefaultPollInterval = 250 * time.Millisecond

var (
	errNotVisible      = core.NewExecutionError(core.ErrCategoryTimeout, "not_visible", "element not visible")
	errNotInteractable = core.NewExecutionError(core.ErrCategoryTimeout, "not_interactable", "element not interactable")
)

// Locate looks an element up once.
type Locate func(ctx context.Context) (core.Element, error)

// Condition is polled by WaitPolicy. It returns the element once satisfied,
// or an error describing why it is not (yet).
type Condition func(ctx context.Context) (core.Element, error)

// WaitPolicy polls a condition until it holds or a deadline passes.
type WaitPolicy struct {
	Interval time.Duration
}

func (w WaitPolicy) interval() time.Duration {
	if w.Interval > 0 {
		return w.Interval
	}
	return DefaultPollInterval
}

// Await polls cond until it returns an element or timeout elapses.
//
// Transient errors (no match, stale node, not yet visible) are retried until
// the deadline; on expiry Await returns ErrWaitTimeout wrapping the last one.
// A driver fault or cancellation of ctx returns immediately. Every poll runs
// under a context carrying the wait deadline, so Await returns no later than
// timeout plus one poll.
func (w WaitPolicy) Await(ctx context.Context, cond Condition, timeout time.Duration) (core.Element, error) {
	interval := w.interval()
	deadline := time.Now().Add(timeout)
	pollCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var lastErr error
	polls := 0
	for {
		polls++
		el, err := cond(pollCtx)
		if err == nil && el != nil {
			return el, nil
		}
		if err != nil {
			if core.IsFatal(err) {
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, core.ErrWaitTimeout.
				WithMessagef("condition not met within %s (%d polls)", timeout, polls).
				WithCause(lastErr)
		}

		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Present holds as soon as the element exists in the DOM.
func Present(locate Locate) Condition {
	return func(ctx context.Context) (core.Element, error) {
		return locate(ctx)
	}
}

// Visible holds when the element exists and is rendered.
func Visible(locate Locate) Condition {
	return func(ctx context.Context) (core.Element, error) {
		el, err := locate(ctx)
		if err != nil {
			return nil, err
		}
		ok, err := el.IsVisible(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errNotVisible
		}
		return el, nil
	}
}

// Clickable holds when the element is visible and accepts input.
func Clickable(locate Locate) Condition {
	visible := Visible(locate)
	return func(ctx context.Context) (core.Element, error) {
		el, err := visible(ctx)
		if err != nil {
			return nil, err
		}
		ok, err := el.IsInteractable(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errNotInteractable
		}
		return el, nil
	}
}
