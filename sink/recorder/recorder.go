// Package recorder provides an in-memory sink that keeps every delivered
// record as a CBOR-encoded entry in a queue, in delivery order.
//
// It is the sink used by tests and local development:
//
//	rec := recorder.New()
//	capture.Install(capture.WithSink(rec.Factory()))
//	...
//	rec.Labels() // ["", "@@INIT (DISPATCHED)", "@@INIT (SUCCESSFUL)", ...]
package recorder

import (
	"context"
	"sync"

	"github.com/xraph/capture/sink"
)

var _ sink.Writer = (*Recorder)(nil)

// Option configures a Recorder.
type Option func(*Recorder)

// WithCapacity bounds the queue. When full, the oldest entry is dropped.
// Zero means unbounded.
func WithCapacity(n int) Option {
	return func(r *Recorder) { r.capacity = n }
}

// Recorder is an in-memory sink.Writer.
type Recorder struct {
	mu       sync.Mutex
	queue    [][]byte
	capacity int
	closed   bool
}

// New creates an empty Recorder.
func New(opts ...Option) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Factory returns a sink.Factory writing to r.
func (r *Recorder) Factory(opts ...sink.WriterOption) sink.Factory {
	return sink.FromWriter(r, opts...)
}

// Write encodes and enqueues recs.
func (r *Recorder) Write(_ context.Context, recs ...sink.Record) error {
	encoded := make([][]byte, 0, len(recs))
	for _, rec := range recs {
		b, err := sink.Encode(rec)
		if err != nil {
			return err
		}
		encoded = append(encoded, b)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return sink.ErrClosed
	}
	r.queue = append(r.queue, encoded...)
	if r.capacity > 0 && len(r.queue) > r.capacity {
		r.queue = append([][]byte(nil), r.queue[len(r.queue)-r.capacity:]...)
	}
	return nil
}

// Close stops accepting records. Recorded entries stay readable.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Entries returns a copy of the encoded queue.
func (r *Recorder) Entries() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.queue...)
}

// Records decodes every queued entry. Entries that fail to decode are
// skipped.
func (r *Recorder) Records() []sink.Record {
	entries := r.Entries()
	out := make([]sink.Record, 0, len(entries))
	for _, b := range entries {
		rec, err := sink.Decode(b)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Labels returns the label of every queued record. The session start
// record has an empty label.
func (r *Recorder) Labels() []string {
	recs := r.Records()
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.Label
	}
	return out
}

// Len returns the number of queued entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Reset empties the queue.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = nil
}
