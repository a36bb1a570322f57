package middleware

import (
	"sync"

	"github.com/xraph/capture/stream"
)

// Outcome statuses reported by Logging, Tracing and Metrics.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

// onTerminal taps src and calls fn once with the outcome status and the
// error, if any, when src terminates. A nil src is returned unchanged.
func onTerminal(src stream.Stream, fn func(status string, err error)) stream.Stream {
	if src == nil {
		return nil
	}
	var (
		mu       sync.Mutex
		hasValue bool
		once     sync.Once
	)
	return stream.Tap(src, stream.Observer{
		Next: func(any) {
			mu.Lock()
			hasValue = true
			mu.Unlock()
		},
		Error: func(err error) {
			once.Do(func() { fn(StatusError, err) })
		},
		Complete: func() {
			mu.Lock()
			ok := hasValue
			mu.Unlock()
			once.Do(func() {
				if ok {
					fn(StatusOK, nil)
				} else {
					fn(StatusCanceled, nil)
				}
			})
		},
	})
}
