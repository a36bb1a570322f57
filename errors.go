package capture

import "errors"

var (
	// ErrNoSink is returned by OpenWriter when the configuration names no
	// transport.
	ErrNoSink = errors.New("capture: no sink configured")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("capture: invalid config")
)
