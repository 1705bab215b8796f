// Package rerun implements the loop that waits for source changes and
// re-runs the test command.
package rerun

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/yaklabco/retest/internal/log"
	"github.com/yaklabco/retest/pkg/watch"
)

// EventSource blocks until a batch of change events is available.
type EventSource interface {
	WaitForEvents(ctx context.Context) ([]watch.ChangeEvent, error)
}

// Runner launches one test run in dir.
type Runner interface {
	Start(ctx context.Context, dir string) (Child, error)
}

// Child is an in-flight test run.
type Child interface {
	Wait() error
}

// Controller owns the run loop. At most one Child is in flight at a time and
// it is always awaited before the loop waits for events again.
type Controller struct {
	source   EventSource
	runner   Runner
	root     string
	shutdown *ShutdownFlag
	trigger  Trigger
	logger   *slog.Logger

	state atomic.Int32
	runs  atomic.Int64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithTrigger replaces the default SourceSuffix(DefaultSuffix, DefaultTriggerKinds).
func WithTrigger(trigger Trigger) ControllerOption {
	return func(c *Controller) {
		c.trigger = trigger
	}
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController returns a Controller that runs runner in root whenever source
// reports a qualifying change. A nil flag gets a private one that only ctx
// cancellation can stop.
func NewController(source EventSource, runner Runner, root string, flag *ShutdownFlag, opts ...ControllerOption) *Controller {
	c := &Controller{
		source:   source,
		runner:   runner,
		root:     root,
		shutdown: flag,
		trigger:  SourceSuffix(DefaultSuffix, DefaultTriggerKinds),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shutdown == nil {
		c.shutdown = &ShutdownFlag{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// State returns the loop's current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Runs returns how many test runs were launched successfully.
func (c *Controller) Runs() int64 {
	return c.runs.Load()
}

func (c *Controller) setState(s State) {
	if State(c.state.Swap(int32(s))) != s {
		c.logger.Debug("run loop state", log.State, s.String())
	}
}

// Run loops until the shutdown flag is observed or ctx is done, returning
// nil in both cases. The flag is checked once per iteration, immediately
// before blocking. It returns an error only if the event source is closed
// underneath it.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if c.shutdown.IsSet() || ctx.Err() != nil {
			c.setState(ShuttingDown)
			return nil
		}

		c.setState(Waiting)
		batch, err := c.source.WaitForEvents(ctx)
		switch {
		case err == nil:
			c.Dispatch(ctx, batch)
		case errors.Is(err, watch.ErrClosed):
			c.setState(ShuttingDown)
			return err
		case errors.Is(err, watch.ErrInterrupted):
		default:
			c.logger.Warn("waiting for changes failed", log.Error, err)
		}
	}
}

// Dispatch inspects one batch and, if any event qualifies, launches and
// awaits a single test run. It reports whether a launch was attempted.
func (c *Controller) Dispatch(ctx context.Context, batch []watch.ChangeEvent) bool {
	c.setState(Filtering)

	ev, found := lo.Find[watch.ChangeEvent](batch, c.trigger)
	if !found {
		c.setState(Waiting)
		return false
	}

	c.setState(Running)
	c.logger.Debug("change detected", log.Path, ev.Path, log.Kind, ev.Kind.String(), log.Count, len(batch))

	child, err := c.runner.Start(ctx, c.root)
	if err != nil {
		c.logger.Error("unable to run tests", log.Dir, c.root, log.Error, err)
		c.setState(Waiting)
		return true
	}
	c.runs.Add(1)

	if err := child.Wait(); err != nil {
		c.logger.Error("waiting for test run failed", log.Error, err)
	}

	c.setState(Waiting)
	return true
}
