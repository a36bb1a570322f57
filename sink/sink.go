// Package sink defines the contract between the event forwarder and an
// external telemetry sink, and the CBOR wire format sinks share.
//
// A sink is created once through a [Factory]. The returned [Middleware]
// is called per event with a function yielding the state snapshot to
// attach:
//
//	handle := factory(sink.Options{GetState: store.Snapshot})
//	handle(func() any { return snapshot })(sink.Event{Label: label, Payload: payload})
//
// Transports implement [Writer] and are turned into a Factory with
// [FromWriter].
package sink

import (
	"context"
	"time"

	"github.com/xraph/capture/id"
)

// Options are handed to a Factory when the sink handle is created.
type Options struct {
	// GetState returns the host store's current snapshot.
	GetState func() any
}

// Event is what the forwarder delivers for one lifecycle event.
type Event struct {
	// Label is "<action-name> (<STATUS>)".
	Label string

	// Payload is the action payload or, when it has none, its descriptor.
	Payload any
}

// Middleware is a sink handle. The snapshot function is evaluated by the
// sink, once per event. The return value is sink specific; a non-nil
// error result is treated as a failed delivery.
type Middleware func(next func() any) func(Event) any

// Factory creates a sink handle.
type Factory func(Options) Middleware

// Record is one entry on the wire.
type Record struct {
	ID      string    `cbor:"id" msgpack:"id" json:"id"`
	Label   string    `cbor:"label,omitempty" msgpack:"label,omitempty" json:"label,omitempty"`
	Payload any       `cbor:"payload,omitempty" msgpack:"payload,omitempty" json:"payload,omitempty"`
	State   any       `cbor:"state,omitempty" msgpack:"state,omitempty" json:"state,omitempty"`
	Time    time.Time `cbor:"ts" msgpack:"ts" json:"ts"`
}

// NewRecord builds the wire record for evt with the given snapshot.
func NewRecord(evt Event, state any) Record {
	return Record{
		ID:      id.NewEventID().String(),
		Label:   evt.Label,
		Payload: evt.Payload,
		State:   state,
		Time:    time.Now().UTC(),
	}
}

// SessionStart is the unlabeled record written when a sink handle is
// created. It carries the initial snapshot.
func SessionStart(state any) Record {
	return NewRecord(Event{}, state)
}

// Writer is a transport for records. Implementations must be safe for
// concurrent use.
type Writer interface {
	// Write delivers records in order.
	Write(ctx context.Context, recs ...Record) error

	// Close releases resources. Write returns ErrClosed afterwards.
	Close() error
}
