package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/capture/action"
)

// Handler executes the logic of one action type. It mutates state through
// sc and returns when the action is finished. A returned error fails the
// action's result stream.
type Handler func(ctx context.Context, sc *StateContext, a action.Action) error

// HandlerOption configures how a handler is run.
type HandlerOption func(*handlerEntry)

// CancelUncompleted makes a new dispatch of the same action type cancel
// the outstanding one: its result stream completes without a value, its
// context is canceled and any state it sets afterwards is discarded.
func CancelUncompleted() HandlerOption {
	return func(e *handlerEntry) { e.cancelUncompleted = true }
}

type handlerEntry struct {
	fn                Handler
	cancelUncompleted bool
}

// registry maps action names to handlers. It is safe for concurrent use.
type registry struct {
	mu       sync.RWMutex
	handlers map[string]*handlerEntry
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string]*handlerEntry)}
}

func (r *registry) register(name string, fn Handler, opts ...HandlerOption) error {
	if name == "" {
		return ErrEmptyName
	}
	if fn == nil {
		return fmt.Errorf("%w: %q", ErrNilHandler, name)
	}

	e := &handlerEntry{fn: fn}
	for _, opt := range opts {
		opt(e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, name)
	}
	r.handlers[name] = e
	return nil
}

func (r *registry) get(name string) (*handlerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.handlers[name]
	return e, ok
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// StateContext gives a handler access to the store state. Once the
// handler's run has been canceled, writes are ignored.
type StateContext struct {
	store *Store
	run   *run
}

// State returns the current state.
func (c *StateContext) State() any {
	return c.store.Snapshot()
}

// SetState replaces the state.
func (c *StateContext) SetState(v any) {
	if c.run.isCanceled() {
		return
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.state = v
}

// Patch replaces the state with fn(current). fn runs under the store's
// write lock and must not call back into the store.
func (c *StateContext) Patch(fn func(current any) any) {
	if c.run.isCanceled() {
		return
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.state = fn(c.store.state)
}
