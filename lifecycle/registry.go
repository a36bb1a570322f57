package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Named entry types pair a hook implementation with the hook name
// captured at registration time.
type observerEntry struct {
	name string
	hook Observer
}

type dispatchedEntry struct {
	name string
	hook ActionDispatched
}

type successfulEntry struct {
	name string
	hook ActionSuccessful
}

type erroredEntry struct {
	name string
	hook ActionErrored
}

type canceledEntry struct {
	name string
	hook ActionCanceled
}

// Registry holds registered hooks and emits lifecycle events to them.
// It type-caches hooks at registration time so Emit iterates only over
// hooks that implement the relevant interface.
//
// Hook errors and panics are logged and never propagated: telemetry must
// not affect the dispatch pipeline.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger
	filter func(name string) bool

	observers  []observerEntry
	dispatched []dispatchedEntry
	successful []successfulEntry
	errored    []erroredEntry
	canceled   []canceledEntry
}

// NewRegistry creates a hook registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// SetFilter installs a predicate on action names. Events for actions it
// rejects are not emitted. A nil filter emits everything.
func (r *Registry) SetFilter(fn func(name string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = fn
}

// Register adds a hook and type-asserts it into all applicable caches.
// Hooks are notified in registration order.
func (r *Registry) Register(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = append(r.hooks, h)
	name := h.Name()

	if o, ok := h.(Observer); ok {
		r.observers = append(r.observers, observerEntry{name, o})
	}
	if o, ok := h.(ActionDispatched); ok {
		r.dispatched = append(r.dispatched, dispatchedEntry{name, o})
	}
	if o, ok := h.(ActionSuccessful); ok {
		r.successful = append(r.successful, successfulEntry{name, o})
	}
	if o, ok := h.(ActionErrored); ok {
		r.errored = append(r.errored, erroredEntry{name, o})
	}
	if o, ok := h.(ActionCanceled); ok {
		r.canceled = append(r.canceled, canceledEntry{name, o})
	}
}

// Hooks returns all registered hooks.
func (r *Registry) Hooks() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Hook(nil), r.hooks...)
}

// Emit notifies every hook interested in evt.
func (r *Registry) Emit(ctx context.Context, evt Event) {
	r.mu.RLock()
	filter := r.filter
	observers := r.observers
	dispatched := r.dispatched
	successful := r.successful
	errored := r.errored
	canceled := r.canceled
	r.mu.RUnlock()

	if filter != nil && !filter(evt.Action.Name) {
		return
	}

	for _, e := range observers {
		r.call("OnEvent", e.name, func() error { return e.hook.OnEvent(ctx, evt) })
	}

	switch evt.Status {
	case Dispatched:
		for _, e := range dispatched {
			r.call("OnActionDispatched", e.name, func() error {
				return e.hook.OnActionDispatched(ctx, evt.Action)
			})
		}
	case Successful:
		for _, e := range successful {
			r.call("OnActionSuccessful", e.name, func() error {
				return e.hook.OnActionSuccessful(ctx, evt.Action, evt.Snapshot, evt.Elapsed)
			})
		}
	case Errored:
		for _, e := range errored {
			r.call("OnActionErrored", e.name, func() error {
				return e.hook.OnActionErrored(ctx, evt.Action, evt.Err, evt.Elapsed)
			})
		}
	case Canceled:
		for _, e := range canceled {
			r.call("OnActionCanceled", e.name, func() error {
				return e.hook.OnActionCanceled(ctx, evt.Action, evt.Elapsed)
			})
		}
	}
}

// call runs one hook invocation, converting a panic into a logged error.
func (r *Registry) call(hook, name string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logHookError(hook, name, fmt.Errorf("panic: %v", p))
		}
	}()
	if err := fn(); err != nil {
		r.logHookError(hook, name, err)
	}
}

// logHookError logs a warning when a lifecycle hook fails.
func (r *Registry) logHookError(hook, name string, err error) {
	r.logger.Warn("lifecycle hook error",
		slog.String("hook", hook),
		slog.String("hook_name", name),
		slog.String("error", err.Error()),
	)
}
