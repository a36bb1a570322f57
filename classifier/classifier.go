// Package classifier infers the lifecycle outcome of a dispatched action
// from the shape of the pipeline's result stream.
//
// The result stream has no explicit cancellation signal. The classifier
// relies on the host pipeline's contract that a preempted action's stream
// completes without a value:
//
//	Next → Complete      Successful (snapshot = the value)
//	Complete             Canceled
//	[Next →] Error       Errored
//
// A handler that legitimately completes without producing a state is
// therefore reported as Canceled. That contract belongs to the host and
// cannot be verified here.
package classifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/lifecycle"
	"github.com/xraph/capture/stream"
)

// ErrNoResult is reported as the error of an action whose pipeline
// returned no result stream.
var ErrNoResult = errors.New("classifier: pipeline returned no result stream")

// NextFunc is the pipeline continuation for one action.
type NextFunc func(ctx context.Context, state any, a action.Action) stream.Stream

// EmitFunc receives classified lifecycle events.
type EmitFunc func(ctx context.Context, evt lifecycle.Event)

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for bookkeeping diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// WithClock overrides the time source used to measure elapsed time.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// Classifier observes result streams and emits one Dispatched event and
// exactly one terminal event per handled action.
type Classifier struct {
	emit   EmitFunc
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Classifier that reports events to emit.
func New(emit EmitFunc, opts ...Option) *Classifier {
	c := &Classifier{
		emit:   emit,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle calls next and returns its stream decorated with a tap that
// classifies the terminal signal. Dispatched is emitted before the
// returned stream can be subscribed, so it always precedes the terminal
// event, including for streams that already terminated synchronously.
//
// Every signal reaches downstream subscribers unchanged. A panic raised
// by next is not recovered here: it belongs to the pipeline.
func (c *Classifier) Handle(ctx context.Context, state any, a action.Action, next NextFunc) stream.Stream {
	result := next(ctx, state, a)
	start := c.now()

	c.report(ctx, lifecycle.Event{Status: lifecycle.Dispatched, Action: a})

	if result == nil {
		c.logger.Warn("pipeline returned no result stream",
			slog.String("action", a.Name),
			slog.String("action_id", a.ID.String()),
		)
		c.report(ctx, lifecycle.Event{
			Status:  lifecycle.Errored,
			Action:  a,
			Err:     ErrNoResult,
			Elapsed: c.now().Sub(start),
		})
		return result
	}

	var (
		mu         sync.Mutex
		latest     any
		hasValue   bool
		terminated atomic.Bool
	)

	return stream.Tap(result, stream.Observer{
		Next: func(v any) {
			mu.Lock()
			latest, hasValue = v, true
			mu.Unlock()
		},
		Error: func(err error) {
			if !c.claim(&terminated, a, "error") {
				return
			}
			c.report(ctx, lifecycle.Event{
				Status:  lifecycle.Errored,
				Action:  a,
				Err:     err,
				Elapsed: c.now().Sub(start),
			})
		},
		Complete: func() {
			if !c.claim(&terminated, a, "complete") {
				return
			}
			mu.Lock()
			v, ok := latest, hasValue
			mu.Unlock()

			evt := lifecycle.Event{Status: lifecycle.Canceled, Action: a, Elapsed: c.now().Sub(start)}
			if ok {
				evt.Status = lifecycle.Successful
				evt.Snapshot = v
			}
			c.report(ctx, evt)
		},
	})
}

// claim reports whether this terminal signal is the first one seen for
// the action. Later terminal signals still reach downstream subscribers.
func (c *Classifier) claim(terminated *atomic.Bool, a action.Action, signal string) bool {
	if terminated.CompareAndSwap(false, true) {
		return true
	}
	c.logger.Debug("ignoring repeated terminal signal",
		slog.String("action", a.Name),
		slog.String("action_id", a.ID.String()),
		slog.String("signal", signal),
	)
	return false
}

// report hands evt to the emit callback. A panic inside it is logged and
// never reaches the pipeline.
func (c *Classifier) report(ctx context.Context, evt lifecycle.Event) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("action classification failed",
				slog.String("action", evt.Action.Name),
				slog.String("status", evt.Status.String()),
				slog.Any("panic", p),
			)
		}
	}()
	if c.emit != nil {
		c.emit(ctx, evt)
	}
}
