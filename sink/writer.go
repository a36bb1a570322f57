package sink

import (
	"context"
	"log/slog"
	"time"
)

// WriterOption configures FromWriter.
type WriterOption func(*writerConfig)

type writerConfig struct {
	timeout      time.Duration
	sessionStart bool
	logger       *slog.Logger
}

// WithWriteTimeout bounds each Write call. Zero means no deadline.
func WithWriteTimeout(d time.Duration) WriterOption {
	return func(c *writerConfig) { c.timeout = d }
}

// WithoutSessionStart disables the unlabeled record written when the
// handle is created.
func WithoutSessionStart() WriterOption {
	return func(c *writerConfig) { c.sessionStart = false }
}

// WithWriterLogger sets the logger used to report a failed session start.
func WithWriterLogger(l *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.logger = l }
}

// FromWriter adapts a transport into a Factory. Each event becomes one
// Record written through w. The handle returns the Write error, or nil.
func FromWriter(w Writer, opts ...WriterOption) Factory {
	cfg := writerConfig{
		timeout:      5 * time.Second,
		sessionStart: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	write := func(rec Record) error {
		if w == nil {
			return ErrNoWriter
		}
		ctx := context.Background()
		if cfg.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
			defer cancel()
		}
		return w.Write(ctx, rec)
	}

	return func(o Options) Middleware {
		if cfg.sessionStart {
			var state any
			if o.GetState != nil {
				state = o.GetState()
			}
			if err := write(SessionStart(state)); err != nil {
				cfg.logger.Warn("sink session start failed", slog.String("error", err.Error()))
			}
		}

		return func(next func() any) func(Event) any {
			return func(evt Event) any {
				var state any
				if next != nil {
					state = next()
				}
				if err := write(NewRecord(evt, state)); err != nil {
					return err
				}
				return nil
			}
		}
	}
}
