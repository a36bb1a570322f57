package httpsink

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/xraph/capture/sink"
)

// Option configures a Sink.
type Option func(*Sink)

// WithKey sets the value of the X-Capture-Key header.
func WithKey(key string) Option {
	return func(s *Sink) { s.key = key }
}

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) { s.client = c }
}

// WithCodec sets the body encoding. Default CBOR.
func WithCodec(c sink.Codec) Option {
	return func(s *Sink) { s.codec = c }
}

// WithRateLimit bounds requests per second. A non-positive rps disables
// limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Sink) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithFlushSchedule buffers records and flushes them on a cron schedule,
// e.g. "@every 2s" or "*/1 * * * *".
func WithFlushSchedule(expr string) Option {
	return func(s *Sink) { s.scheduleExpr = expr }
}

// WithBatchSize flushes early once n records are buffered. Default 100.
func WithBatchSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithLogger sets the logger for background flush failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}
