// Package forwarder relays classified lifecycle events to a telemetry
// sink.
//
// The store is resolved on the first delivery, not at construction,
// because it is usually still being built when the forwarder is
// registered. The sink handle is created at most once, inside the
// executor, and never torn down. Sink failures are logged and never reach
// the pipeline.
package forwarder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/xraph/capture/lifecycle"
	"github.com/xraph/capture/sink"
)

// Compile-time interface checks.
var (
	_ lifecycle.Hook     = (*Forwarder)(nil)
	_ lifecycle.Observer = (*Forwarder)(nil)
)

// Snapshotter is the host store as seen by the forwarder.
type Snapshotter interface {
	// Snapshot returns the store's current state.
	Snapshot() any
}

// Resolver returns the host store. It is called once, on first delivery,
// on the caller's goroutine.
type Resolver func() Snapshotter

// Forwarder is a lifecycle hook that delivers every event to a sink.
type Forwarder struct {
	factory    sink.Factory
	resolve    Resolver
	serverMode bool
	exec       Executor
	logger     *slog.Logger

	storeOnce   sync.Once
	store       Snapshotter
	once        sync.Once
	initialized atomic.Bool
	handle      sink.Middleware
}

// New creates a Forwarder. factory builds the sink handle and resolve
// yields the store; both are invoked lazily.
func New(factory sink.Factory, resolve Resolver, opts ...Option) *Forwarder {
	f := &Forwarder{
		factory: factory,
		resolve: resolve,
		exec:    Inline{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements lifecycle.Hook.
func (f *Forwarder) Name() string { return "capture-forwarder" }

// OnEvent implements lifecycle.Observer. It never returns an error.
func (f *Forwarder) OnEvent(ctx context.Context, evt lifecycle.Event) error {
	f.Forward(ctx, evt)
	return nil
}

// Forward delivers evt to the sink as "<name> (<STATUS>)". In server
// mode it returns without touching the sink. The snapshot and payload are
// resolved on the caller's goroutine before handing delivery to the
// executor:
//
//   - snapshot: evt.Snapshot, else the store's current snapshot
//   - payload: the action payload, else its descriptor
//
// The sink handle is built inside the executor, so a transport that
// writes on creation never blocks the dispatching goroutine.
func (f *Forwarder) Forward(_ context.Context, evt lifecycle.Event) {
	if f.serverMode {
		return
	}

	store := f.resolveStore()

	snapshot := evt.Snapshot
	if snapshot == nil && store != nil {
		snapshot = f.currentSnapshot(store)
	}

	payload := evt.Action.Payload
	if payload == nil {
		payload = evt.Action.Descriptor()
	}

	se := sink.Event{Label: evt.Label(), Payload: payload}
	f.exec.Execute(func() {
		if handle := f.init(store); handle != nil {
			f.deliver(handle, se, snapshot)
		}
	})
}

// Initialized reports whether the sink handle has been resolved. It stays
// true when resolution failed.
func (f *Forwarder) Initialized() bool {
	return f.initialized.Load()
}

func (f *Forwarder) resolveStore() Snapshotter {
	f.storeOnce.Do(func() {
		defer func() {
			if p := recover(); p != nil {
				f.store = nil
				f.logger.Error("capture: store resolution panicked", slog.Any("panic", p))
			}
		}()
		if f.resolve != nil {
			f.store = f.resolve()
		}
	})
	return f.store
}

func (f *Forwarder) init(store Snapshotter) sink.Middleware {
	f.once.Do(func() {
		defer f.initialized.Store(true)
		defer func() {
			if p := recover(); p != nil {
				f.handle = nil
				f.logger.Error("capture: sink initialization panicked", slog.Any("panic", p))
			}
		}()

		if f.factory == nil {
			f.logger.Warn("capture: no sink configured, events are dropped")
			return
		}

		opts := sink.Options{}
		if store != nil {
			opts.GetState = store.Snapshot
		}
		f.handle = f.factory(opts)
	})
	return f.handle
}

func (f *Forwarder) currentSnapshot(store Snapshotter) (v any) {
	defer func() {
		if p := recover(); p != nil {
			f.logger.Error("capture: store snapshot panicked", slog.Any("panic", p))
			v = nil
		}
	}()
	return store.Snapshot()
}

func (f *Forwarder) deliver(handle sink.Middleware, evt sink.Event, snapshot any) {
	defer func() {
		if p := recover(); p != nil {
			f.logger.Error("capture: sink delivery panicked",
				slog.String("label", evt.Label),
				slog.Any("panic", p),
			)
		}
	}()

	res := handle(func() any { return snapshot })(evt)
	if err, ok := res.(error); ok && err != nil {
		f.logger.Warn("capture: sink delivery failed",
			slog.String("label", evt.Label),
			slog.String("error", err.Error()),
		)
	}
}
