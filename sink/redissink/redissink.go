// Package redissink appends records to a Redis stream, one entry per
// record, for collectors that consume with XREAD or consumer groups.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redissink.New(client, redissink.WithStream("capture:events"))
//	capture.Install(capture.WithSink(sink.FromWriter(s)))
//
// Each entry carries two fields: "label" in plain text and "event" with
// the encoded record.
package redissink

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/capture/sink"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "capture:events"

// StreamAdder is the subset of the Redis client the sink uses.
// *redis.Client, *redis.ClusterClient and redis.Cmdable satisfy it.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

var _ sink.Writer = (*Sink)(nil)

// Option configures a Sink.
type Option func(*Sink)

// WithStream sets the stream key.
func WithStream(key string) Option {
	return func(s *Sink) { s.stream = key }
}

// WithMaxLen caps the stream length with approximate trimming.
// Zero means no cap.
func WithMaxLen(n int64) Option {
	return func(s *Sink) { s.maxLen = n }
}

// WithCodec sets the record encoding. Default CBOR.
func WithCodec(c sink.Codec) Option {
	return func(s *Sink) { s.codec = c }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// Sink is a sink.Writer backed by a Redis stream. The caller owns the
// Redis client lifecycle.
type Sink struct {
	client StreamAdder
	stream string
	maxLen int64
	codec  sink.Codec
	logger *slog.Logger
	closed atomic.Bool
}

// New creates a Redis stream sink.
func New(client StreamAdder, opts ...Option) *Sink {
	s := &Sink{
		client: client,
		stream: DefaultStream,
		codec:  sink.CBORCodec{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream returns the stream key.
func (s *Sink) Stream() string { return s.stream }

// Write appends recs in order. It stops at the first failure.
func (s *Sink) Write(ctx context.Context, recs ...sink.Record) error {
	if s.closed.Load() {
		return sink.ErrClosed
	}
	for _, rec := range recs {
		data, err := s.codec.Encode(rec)
		if err != nil {
			return err
		}
		args := &redis.XAddArgs{
			Stream: s.stream,
			Values: map[string]any{
				"label": rec.Label,
				"event": data,
			},
		}
		if s.maxLen > 0 {
			args.MaxLen = s.maxLen
			args.Approx = true
		}
		if err := s.client.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("redissink: xadd %s: %w", s.stream, err)
		}
	}
	return nil
}

// Close stops accepting records. The Redis client is left open.
func (s *Sink) Close() error {
	s.closed.Store(true)
	return nil
}
