package sink

import "errors"

var (
	// ErrClosed is returned when writing to a closed sink.
	ErrClosed = errors.New("sink: closed")

	// ErrNoWriter is returned by handles created without a writer.
	ErrNoWriter = errors.New("sink: no writer")

	// ErrNoEndpoint is returned when a transport is created without a
	// destination.
	ErrNoEndpoint = errors.New("sink: no endpoint")

	// ErrRejected is returned when a collector refuses a batch.
	ErrRejected = errors.New("sink: rejected by collector")
)
