package stream

import "sync"

// Subject is a Stream that is signalled imperatively and replays what it
// has seen to late subscribers. Signals after the terminal one are
// dropped, so a producer can safely race a late result against an
// earlier Complete.
//
// Signals are delivered while holding the subject's lock, which keeps
// them ordered across goroutines. Observers must not signal or subscribe
// to the same Subject from inside a callback.
type Subject struct {
	mu        sync.Mutex
	values    []any
	err       error
	completed bool
	failed    bool
	observers []Observer
}

// NewSubject returns an empty, unterminated Subject.
func NewSubject() *Subject {
	return &Subject{}
}

// Next records v and delivers it to current subscribers.
// It reports false if the subject had already terminated.
func (s *Subject) Next(v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated() {
		return false
	}
	s.values = append(s.values, v)
	for _, o := range s.observers {
		o.next(v)
	}
	return true
}

// Error terminates the subject with err.
// It reports false if the subject had already terminated.
func (s *Subject) Error(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated() {
		return false
	}
	s.failed, s.err = true, err
	for _, o := range s.observers {
		o.error(err)
	}
	s.observers = nil
	return true
}

// Complete terminates the subject successfully.
// It reports false if the subject had already terminated.
func (s *Subject) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated() {
		return false
	}
	s.completed = true
	for _, o := range s.observers {
		o.complete()
	}
	s.observers = nil
	return true
}

// Done reports whether the subject has terminated.
func (s *Subject) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated()
}

// Subscribe replays recorded signals to o and, if the subject is still
// open, keeps o for future signals.
func (s *Subject) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.values {
		o.next(v)
	}
	switch {
	case s.failed:
		o.error(s.err)
	case s.completed:
		o.complete()
	default:
		s.observers = append(s.observers, o)
	}
}

// Observer returns an Observer that forwards signals into s, for piping
// another stream into the subject.
func (s *Subject) Observer() Observer {
	return Observer{
		Next:     func(v any) { s.Next(v) },
		Error:    func(err error) { s.Error(err) },
		Complete: func() { s.Complete() },
	}
}

func (s *Subject) terminated() bool {
	return s.completed || s.failed
}
