package broker

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives events from the topics it is subscribed to.
type Subscriber struct {
	id string

	mu     sync.RWMutex
	ch     chan *Event
	closed bool

	filter  func(*Event) bool
	dropped atomic.Int64
}

func newSubscriber(id string, bufferSize int) *Subscriber {
	return &Subscriber{id: id, ch: make(chan *Event, bufferSize)}
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the event channel. It is closed when the subscriber is
// removed or the broker shuts down.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// SetFilter sets an optional event predicate. Must be called before the
// subscriber receives events.
func (s *Subscriber) SetFilter(fn func(*Event) bool) { s.filter = fn }

// Dropped returns how many events did not fit in the buffer.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// send delivers evt without blocking. full reports that evt was
// dropped because the buffer had no room.
func (s *Subscriber) send(evt *Event) (ok, full bool) {
	if s.filter != nil && !s.filter(evt) {
		return false, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, false
	}
	select {
	case s.ch <- evt:
		return true, false
	default:
		s.dropped.Add(1)
		return false, true
	}
}

// close closes the channel. Safe to call multiple times.
func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
