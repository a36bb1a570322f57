// Package store is a minimal action-dispatch host: it holds one state
// value, runs registered handlers for dispatched actions, and passes every
// action through a chain of plugins.
//
// Every dispatch returns a result stream that honours one contract:
//
//	Next(state) → Complete   the handler succeeded
//	Complete                 the action was canceled by a newer dispatch
//	Error(err)               the handler failed or panicked
//
// Actions without a handler succeed immediately with the current state.
//
// Usage:
//
//	s, err := store.New([]string{},
//	    store.WithHandler("[Countries] Load countries", loadCountries, store.CancelUncompleted()),
//	    store.WithPlugin(middleware.Recover(logger)),
//	)
//	s.Start(ctx)
//	state, ok, err := stream.Await(ctx, s.Dispatch(ctx, action.New("[Countries] Load countries", nil)))
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/id"
	"github.com/xraph/capture/stream"
)

// Store holds state and dispatches actions. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state any

	handlers *registry
	plugins  []Plugin
	chain    Plugin
	logger   *slog.Logger
	err      error

	runsMu sync.Mutex
	runs   map[string]*run

	lifeMu  sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	closers []func(context.Context) error

	startOnce sync.Once
	initRes   stream.Stream
}

// New creates a store holding initial. It returns the first error raised
// by an option, such as a duplicate handler.
func New(initial any, opts ...Option) (*Store, error) {
	s := &Store{
		state:    initial,
		handlers: newRegistry(),
		logger:   slog.Default(),
		runs:     make(map[string]*run),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	if len(s.plugins) > 0 {
		s.chain = Chain(s.plugins...)
	}
	return s, nil
}

// Register adds a handler after construction.
func (s *Store) Register(name string, fn Handler, opts ...HandlerOption) error {
	return s.handlers.register(name, fn, opts...)
}

// Names returns the action names that have a handler.
func (s *Store) Names() []string {
	return s.handlers.names()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnClose registers fn to run during Close, after outstanding handlers
// have returned.
func (s *Store) OnClose(fn func(context.Context) error) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.closers = append(s.closers, fn)
}

// Start dispatches the init action once. Later calls return the stream of
// the first one.
func (s *Store) Start(ctx context.Context) stream.Stream {
	s.startOnce.Do(func() {
		s.initRes = s.Dispatch(ctx, action.Init())
	})
	return s.initRes
}

// Dispatch runs a through the plugin chain and its handler. The returned
// stream replays its signals to every subscriber, so callers may subscribe
// late or not at all.
//
// The action gets an ID and dispatch time when they are unset. When its
// handler was registered with CancelUncompleted, the outstanding dispatch
// of the same name is canceled before a enters the plugin chain.
func (s *Store) Dispatch(ctx context.Context, a action.Action) stream.Stream {
	if s.isClosed() {
		return stream.Fail(ErrClosed)
	}

	if a.ID.IsNil() {
		a.ID = id.NewActionID()
	}
	if a.DispatchedAt.IsZero() {
		a.DispatchedAt = time.Now().UTC()
	}

	entry, _ := s.handlers.get(a.Name)
	r := &run{}
	if entry != nil && entry.cancelUncompleted {
		r = s.claim(a)
	}

	terminal := func(ctx context.Context, _ any, a action.Action) stream.Stream {
		return s.execute(ctx, a, entry, r)
	}

	var out stream.Stream
	if s.chain != nil {
		out = s.chain(ctx, s.Snapshot(), a, terminal)
	} else {
		out = terminal(ctx, s.Snapshot(), a)
	}
	if out == nil {
		out = stream.Fail(fmt.Errorf("%w: %s", ErrNoResult, a.Name))
	}

	result := stream.NewSubject()
	out.Subscribe(result.Observer())
	return result
}

// Close stops accepting dispatches, waits for running handlers and then
// runs the OnClose callbacks. It returns ctx.Err() if ctx ends first.
func (s *Store) Close(ctx context.Context) error {
	s.lifeMu.Lock()
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.lifeMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var errs []error
	for _, fn := range closers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) isClosed() bool {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	return s.closed
}

// execute starts the handler and returns its result stream.
func (s *Store) execute(ctx context.Context, a action.Action, entry *handlerEntry, r *run) stream.Stream {
	subj := stream.NewSubject()

	if entry == nil {
		subj.Next(s.Snapshot())
		subj.Complete()
		return subj
	}

	runCtx, cancel := context.WithCancel(ctx)
	if !r.start(subj, cancel) {
		// Canceled before the chain reached the handler.
		cancel()
		subj.Complete()
		return subj
	}

	s.lifeMu.RLock()
	if s.closed {
		s.lifeMu.RUnlock()
		cancel()
		subj.Error(ErrClosed)
		return subj
	}
	s.wg.Add(1)
	s.lifeMu.RUnlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		if entry.cancelUncompleted {
			defer s.release(a.Name, r)
		}

		err := s.invoke(runCtx, entry.fn, &StateContext{store: s, run: r}, a)
		switch {
		case r.isCanceled():
			// The stream was already completed by the newer dispatch.
		case err != nil:
			subj.Error(err)
		default:
			subj.Next(s.Snapshot())
			subj.Complete()
		}
	}()

	return subj
}

// invoke calls fn, converting a panic into an error.
func (s *Store) invoke(ctx context.Context, fn Handler, sc *StateContext, a action.Action) (err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("action handler panicked",
				slog.String("action", a.Name),
				slog.String("action_id", a.ID.String()),
				slog.Any("panic", p),
			)
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
	}()
	return fn(ctx, sc, a)
}

// claim registers a new run for a's name and cancels the outstanding one.
func (s *Store) claim(a action.Action) *run {
	r := &run{}

	s.runsMu.Lock()
	prev := s.runs[a.Name]
	s.runs[a.Name] = r
	s.runsMu.Unlock()

	if prev != nil && prev.preempt() {
		s.logger.Debug("action canceled by newer dispatch",
			slog.String("action", a.Name),
			slog.String("action_id", a.ID.String()),
		)
	}
	return r
}

func (s *Store) release(name string, r *run) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	if s.runs[name] == r {
		delete(s.runs, name)
	}
}

// run tracks one handler execution that may be preempted.
type run struct {
	mu       sync.Mutex
	subject  *stream.Subject
	cancel   context.CancelFunc
	canceled bool
}

// start attaches the handler's stream and cancel func. It reports false
// if the run was already preempted.
func (r *run) start(subj *stream.Subject, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.canceled {
		return false
	}
	r.subject, r.cancel = subj, cancel
	return true
}

// preempt cancels the run and completes its stream without a value. It
// reports whether this call did the canceling.
func (r *run) preempt() bool {
	r.mu.Lock()
	if r.canceled {
		r.mu.Unlock()
		return false
	}
	r.canceled = true
	subj, cancel := r.subject, r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if subj != nil {
		subj.Complete()
	}
	return true
}

func (r *run) isCanceled() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}
