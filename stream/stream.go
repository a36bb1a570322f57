// Package stream provides the push-based result stream produced by the
// dispatch pipeline for one action.
//
// A conforming stream signals zero or one Next carrying the post-action
// state, then exactly one terminal signal: Complete or Error.
//
//	Next(state) → Complete   the action succeeded
//	Complete                 the action was canceled (preempted)
//	[Next(state) →] Error    the action failed
//
// Streams are observed through an [Observer]. [Tap] decorates a stream
// with a side-channel observer without altering what downstream sees.
package stream

import "context"

// Observer receives the signals of a Stream. Nil callbacks are skipped.
type Observer struct {
	Next     func(state any)
	Error    func(err error)
	Complete func()
}

func (o Observer) next(v any) {
	if o.Next != nil {
		o.Next(v)
	}
}

func (o Observer) error(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

func (o Observer) complete() {
	if o.Complete != nil {
		o.Complete()
	}
}

// Stream is a push-based sequence of signals for one dispatched action.
type Stream interface {
	// Subscribe registers o. Signals may be delivered synchronously,
	// before Subscribe returns, when the stream has already terminated.
	Subscribe(o Observer)
}

// Func adapts a plain function to the Stream interface.
type Func func(o Observer)

// Subscribe calls f(o).
func (f Func) Subscribe(o Observer) { f(o) }

// Just returns a stream that signals Next(v) then Complete.
func Just(v any) Stream {
	return Func(func(o Observer) {
		o.next(v)
		o.complete()
	})
}

// Empty returns a stream that completes without a value.
func Empty() Stream {
	return Func(func(o Observer) { o.complete() })
}

// Fail returns a stream that terminates with err.
func Fail(err error) Stream {
	return Func(func(o Observer) { o.error(err) })
}

// Never returns a stream that never signals.
func Never() Stream {
	return Func(func(Observer) {})
}

// Tap returns a stream that forwards every signal of src unchanged to
// its subscriber and additionally delivers it to side. The side observer
// sees each signal before the downstream subscriber does.
func Tap(src Stream, side Observer) Stream {
	return Func(func(o Observer) {
		src.Subscribe(Observer{
			Next: func(v any) {
				side.next(v)
				o.next(v)
			},
			Error: func(err error) {
				side.error(err)
				o.error(err)
			},
			Complete: func() {
				side.complete()
				o.complete()
			},
		})
	})
}

// Finally returns a stream that calls fn once after src terminates,
// after the downstream subscriber has seen the terminal signal.
func Finally(src Stream, fn func()) Stream {
	return Func(func(o Observer) {
		src.Subscribe(Observer{
			Next: o.next,
			Error: func(err error) {
				o.error(err)
				fn()
			},
			Complete: func() {
				o.complete()
				fn()
			},
		})
	})
}

type outcome struct {
	value    any
	hasValue bool
	err      error
}

// Await subscribes to s and blocks until it terminates or ctx is done.
// It returns the last Next value, whether any value was signalled, and
// the stream's error. A nil error with ok == false means the stream
// completed without a value.
func Await(ctx context.Context, s Stream) (value any, ok bool, err error) {
	done := make(chan outcome, 1)
	var last outcome

	s.Subscribe(Observer{
		Next: func(v any) {
			last.value, last.hasValue = v, true
		},
		Error: func(e error) {
			select {
			case done <- outcome{value: last.value, hasValue: last.hasValue, err: e}:
			default:
			}
		},
		Complete: func() {
			select {
			case done <- outcome{value: last.value, hasValue: last.hasValue}:
			default:
			}
		},
	})

	select {
	case res := <-done:
		return res.value, res.hasValue, res.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
