package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/wizard-runner/pkg/core"
	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// DefaultFallbackTimeout bounds the relaxed existence wait of a fallback.
const DefaultFallbackTimeout = 5 * time.Second

// State is a StepExecutor state.
type State string

// Step states. Succeeded and Failed are terminal.
const (
	StatePending         State = "pending"
	StateResolving       State = "resolving"
	StateWaiting         State = "waiting"
	StateActing          State = "acting"
	StateFallbackWaiting State = "fallback-waiting"
	StateFallbackActing  State = "fallback-acting"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
)

// StepExecutor runs a single step: resolve, wait, act, and at most one
// fallback act. A step is never retried as a whole.
type StepExecutor struct {
	Driver          core.Driver
	Resolver        Resolver
	Wait            WaitPolicy
	Invoker         Invoker
	FallbackTimeout time.Duration
	Logger          *zap.Logger
}

// NewStepExecutor wires an executor for one run.
func NewStepExecutor(driver core.Driver, dr flow.DateRange, poll time.Duration, logger *zap.Logger) *StepExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StepExecutor{
		Driver:   driver,
		Resolver: Resolver{Range: dr},
		Wait:     WaitPolicy{Interval: poll},
		Invoker:  Invoker{Driver: driver},
		Logger:   logger,
	}
}

// stepRun carries the mutable state of one Execute call.
type stepRun struct {
	e      *StepExecutor
	step   *flow.Step
	result core.StepResult
	log    *zap.Logger
}

func (r *stepRun) enter(s State) {
	r.result.Trace = append(r.result.Trace, string(s))
	r.log.Debug("state", zap.String("state", string(s)))
}

// Execute runs step and returns its result. The result status is Passed,
// Warned (soft step failed), Failed (hard step failed) or Errored (driver
// fault or cancellation).
func (e *StepExecutor) Execute(ctx context.Context, idx int, step *flow.Step) core.StepResult {
	r := &stepRun{
		e:    e,
		step: step,
		log:  e.logger().With(zap.Int("step", idx), zap.String("name", step.Name)),
		result: core.StepResult{
			Name:      step.Name,
			Index:     idx,
			Action:    step.Action.Describe(),
			Selector:  step.Selector.DescribeQuoted(),
			Soft:      step.IsOptional(),
			Status:    core.StatusRunning,
			StartTime: time.Now(),
		},
	}
	r.enter(StatePending)
	r.run(ctx)
	r.result.Duration = time.Since(r.result.StartTime)
	return r.result
}

func (r *stepRun) run(ctx context.Context) {
	e, step := r.e, r.step

	r.enter(StateResolving)
	loc, err := e.Resolver.Resolve(step.Selector)
	if err != nil {
		r.fail(ctx, err)
		return
	}
	r.result.Locator = loc.String()

	// Re-resolved on every poll; the date range never changes within a run.
	locate := func(ctx context.Context) (core.Element, error) {
		loc, err := e.Resolver.Resolve(step.Selector)
		if err != nil {
			return nil, err
		}
		return e.Driver.FindElement(ctx, loc)
	}

	r.enter(StateWaiting)
	el, err := e.Wait.Await(ctx, primaryCondition(step.Action, locate), timeoutOr(step.Timeout, flow.HardTimeout))
	if err != nil {
		if abort(ctx, err) || !step.HasFallback() {
			r.fail(ctx, err)
			return
		}
		r.log.Info("primary wait failed, falling back", zap.Error(err))
		r.fallbackWait(ctx, locate, err)
		return
	}

	r.enter(StateActing)
	r.result.Attempts++
	ack, err := e.Invoker.Act(ctx, el, step.Action)
	r.result.Data = ack.Value
	if err == nil {
		r.succeed()
		return
	}
	if abort(ctx, err) || !step.HasFallback() {
		r.fail(ctx, err)
		return
	}
	r.log.Info("primary action failed, falling back", zap.Error(err))
	r.fallbackAct(ctx, el, err)
}

func (r *stepRun) fallbackWait(ctx context.Context, locate Locate, primary error) {
	r.enter(StateFallbackWaiting)
	r.result.UsedFallback = true
	el, err := r.e.Wait.Await(ctx, Present(locate), r.e.fallbackTimeout(r.step))
	if err != nil {
		r.fail(ctx, withPrimary(err, primary))
		return
	}
	r.fallbackAct(ctx, el, primary)
}

func (r *stepRun) fallbackAct(ctx context.Context, el core.Element, primary error) {
	r.enter(StateFallbackActing)
	r.result.UsedFallback = true
	r.result.Attempts++
	ack, err := r.e.Invoker.Act(ctx, el, *r.step.Fallback)
	if ack.Value != "" {
		r.result.Data = ack.Value
	}
	if err != nil {
		r.fail(ctx, withPrimary(err, primary))
		return
	}
	r.succeed()
	r.result.Message = "passed via fallback: " + r.step.Fallback.Describe()
}

func (r *stepRun) succeed() {
	r.enter(StateSucceeded)
	r.result.Status = core.StatusPassed
	r.log.Info("step passed", zap.Int("attempts", r.result.Attempts), zap.Bool("fallback", r.result.UsedFallback))
}

func (r *stepRun) fail(ctx context.Context, err error) {
	r.enter(StateFailed)
	r.result.Err = err
	r.result.Error = err.Error()
	r.result.Category = core.CategoryOf(err)
	r.result.Message = err.Error()

	switch {
	case abort(ctx, err):
		r.result.Status = core.StatusErrored
	case r.step.IsOptional():
		r.result.Status = core.StatusWarned
	default:
		r.result.Status = core.StatusFailed
	}
	r.log.Warn("step failed", zap.String("status", r.result.Status.String()), zap.Error(err))
}

func (e *StepExecutor) fallbackTimeout(step *flow.Step) time.Duration {
	if step.FallbackTimeout > 0 {
		return step.FallbackTimeout
	}
	return timeoutOr(e.FallbackTimeout, DefaultFallbackTimeout)
}

func (e *StepExecutor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// primaryCondition picks what the primary wait must observe. Native clicks
// need a clickable element, native reads of rendered state a visible one;
// everything else, including all script dispatch, only needs presence.
func primaryCondition(a flow.Action, locate Locate) Condition {
	if a.Strategy != flow.StrategyNative {
		return Present(locate)
	}
	switch a.Kind {
	case flow.ActionClick:
		return Clickable(locate)
	case flow.ActionReadText, flow.ActionAssertVisible:
		return Visible(locate)
	default:
		return Present(locate)
	}
}

// abort reports whether err must end the run rather than the step.
func abort(ctx context.Context, err error) bool {
	return core.IsFatal(err) || ctx.Err() != nil || errors.Is(err, context.Canceled)
}

func timeoutOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// withPrimary keeps the fallback error classification and records the
// primary failure in the message.
func withPrimary(fallback, primary error) error {
	return fmt.Errorf("%w (primary: %v)", fallback, primary)
}
