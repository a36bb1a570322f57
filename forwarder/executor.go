package forwarder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Executor runs sink deliveries outside the dispatch pipeline's own
// bookkeeping.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(fn func())

// Execute calls f(fn).
func (f ExecutorFunc) Execute(fn func()) { f(fn) }

// Inline runs deliveries synchronously in the caller's goroutine.
type Inline struct{}

// Execute runs fn immediately.
func (Inline) Execute(fn func()) { fn() }

// Background runs deliveries on a single goroutine in submission order.
// When its queue is full new deliveries are dropped with a warning.
type Background struct {
	queue  chan func()
	done   chan struct{}
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewBackground starts a Background executor with the given queue size.
func NewBackground(size int, logger *slog.Logger) *Background {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Background{
		queue:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger,
	}
	go b.run()
	return b
}

// Execute enqueues fn. It never blocks.
func (b *Background) Execute(fn func()) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("capture: delivery after executor close dropped")
		return
	}

	select {
	case b.queue <- fn:
	default:
		b.dropped.Add(1)
		b.logger.Warn("capture: delivery queue full, event dropped",
			slog.Int("queue_size", cap(b.queue)),
		)
	}
}

// Dropped returns how many deliveries were dropped because the queue was
// full.
func (b *Background) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops accepting deliveries and waits for queued ones to finish
// or for ctx to be done.
func (b *Background) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Background) run() {
	defer close(b.done)
	for fn := range b.queue {
		fn()
	}
}
