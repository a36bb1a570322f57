package store

import "errors"

var (
	// ErrClosed is signalled by streams of actions dispatched after Close.
	ErrClosed = errors.New("store: closed")

	// ErrEmptyName is returned when registering a handler without a name.
	ErrEmptyName = errors.New("store: empty action name")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("store: nil handler")

	// ErrDuplicateHandler is returned when an action name already has a
	// handler.
	ErrDuplicateHandler = errors.New("store: handler already registered")

	// ErrNoResult is signalled when a plugin returns a nil stream.
	ErrNoResult = errors.New("store: plugin returned no result stream")

	// ErrHandlerPanic wraps a panic raised by an action handler.
	ErrHandlerPanic = errors.New("store: handler panicked")
)
