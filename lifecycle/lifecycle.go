// Package lifecycle defines the observed outcome of a dispatched action
// and the hooks notified about it.
//
// Each dispatched action produces exactly one Dispatched event followed
// by exactly one terminal event: Successful, Errored, or Canceled.
//
// Each status has its own hook interface so hooks opt in only to the
// events they care about. [Observer] receives every event.
package lifecycle

import (
	"context"
	"time"

	"github.com/xraph/capture/action"
)

// Status is the observed lifecycle outcome of a dispatched action.
type Status int

const (
	// Dispatched is emitted as soon as the action enters the pipeline.
	Dispatched Status = iota
	// Successful is emitted when the result stream completed after a value.
	Successful
	// Errored is emitted when the result stream terminated with an error.
	Errored
	// Canceled is emitted when the result stream completed without a value.
	Canceled
)

// String returns the upper-case label used in sink event names.
func (s Status) String() string {
	switch s {
	case Dispatched:
		return "DISPATCHED"
	case Successful:
		return "SUCCESSFUL"
	case Errored:
		return "ERRORED"
	case Canceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s ends an action's lifecycle.
func (s Status) Terminal() bool {
	return s == Successful || s == Errored || s == Canceled
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{Dispatched, Successful, Errored, Canceled}
}

// Event is one classified lifecycle event.
type Event struct {
	Status Status
	Action action.Action

	// Snapshot is the post-action state for Successful and nil otherwise.
	Snapshot any

	// Err is the pipeline error for Errored.
	Err error

	// Elapsed is the time from dispatch to the terminal signal.
	// Zero for Dispatched.
	Elapsed time.Duration
}

// Label returns the sink label "<action-name> (<STATUS>)".
func (e Event) Label() string {
	return e.Action.Name + " (" + e.Status.String() + ")"
}

// Hook is the base interface all lifecycle hooks implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// Observer is notified of every lifecycle event.
type Observer interface {
	OnEvent(ctx context.Context, evt Event) error
}

// ActionDispatched is called when an action enters the pipeline.
type ActionDispatched interface {
	OnActionDispatched(ctx context.Context, a action.Action) error
}

// ActionSuccessful is called when an action's result stream completed
// after producing a state.
type ActionSuccessful interface {
	OnActionSuccessful(ctx context.Context, a action.Action, state any, elapsed time.Duration) error
}

// ActionErrored is called when an action's result stream failed.
type ActionErrored interface {
	OnActionErrored(ctx context.Context, a action.Action, err error, elapsed time.Duration) error
}

// ActionCanceled is called when an action's result stream completed
// without producing a state.
type ActionCanceled interface {
	OnActionCanceled(ctx context.Context, a action.Action, elapsed time.Duration) error
}
