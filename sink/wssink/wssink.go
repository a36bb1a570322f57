// Package wssink streams records to a WebSocket collector, one binary
// frame per record.
//
// The connection is dialed on the first write and redialed on the next
// write after a failure:
//
//	s := wssink.New("wss://collector.example.com/ingest", wssink.WithKey(key))
//	defer s.Close()
//	capture.Install(capture.WithSink(sink.FromWriter(s)))
package wssink

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/capture/sink"
	"github.com/xraph/capture/sink/httpsink"
)

var _ sink.Writer = (*Sink)(nil)

// Option configures a Sink.
type Option func(*Sink)

// WithKey sends the key in the X-Capture-Key handshake header.
func WithKey(key string) Option {
	return func(s *Sink) { s.key = key }
}

// WithCodec sets the frame encoding. Default CBOR.
func WithCodec(c sink.Codec) Option {
	return func(s *Sink) { s.codec = c }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// Sink is a sink.Writer over a client WebSocket connection.
type Sink struct {
	url    string
	key    string
	codec  sink.Codec
	logger *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// New creates a WebSocket sink. No connection is made until the first
// write.
func New(url string, opts ...Option) *Sink {
	s := &Sink{
		url:    url,
		codec:  sink.CBORCodec{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write sends one binary frame per record, in order. The ctx deadline, if
// any, bounds the frame writes.
func (s *Sink) Write(ctx context.Context, recs ...sink.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return sink.ErrClosed
	}
	if s.url == "" {
		return sink.ErrNoEndpoint
	}

	if s.conn == nil {
		if err := s.connect(ctx); err != nil {
			return err
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("wssink: set write deadline: %w", err)
		}
		defer func() {
			if s.conn != nil {
				_ = s.conn.SetWriteDeadline(time.Time{})
			}
		}()
	}

	for _, rec := range recs {
		data, err := s.codec.Encode(rec)
		if err != nil {
			return err
		}
		if err := wsutil.WriteClientBinary(s.conn, data); err != nil {
			s.logger.Debug("wssink: dropping connection after write failure",
				slog.String("url", s.url),
				slog.String("error", err.Error()),
			)
			_ = s.conn.Close()
			s.conn = nil
			return fmt.Errorf("wssink: write frame: %w", err)
		}
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn == nil {
		return nil
	}

	_ = ws.WriteFrame(s.conn, ws.MaskFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))))
	err := s.conn.Close()
	s.conn = nil
	return err
}

// connect must be called with s.mu held.
func (s *Sink) connect(ctx context.Context) error {
	dialer := ws.Dialer{}
	if s.key != "" {
		h := http.Header{}
		h.Set(httpsink.KeyHeader, s.key)
		dialer.Header = ws.HandshakeHeaderHTTP(h)
	}

	conn, _, _, err := dialer.Dial(ctx, s.url)
	if err != nil {
		return fmt.Errorf("wssink: dial %s: %w", s.url, err)
	}
	s.conn = conn
	return nil
}
