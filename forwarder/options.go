package forwarder

import "log/slog"

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithServerMode suppresses all deliveries when enabled.
func WithServerMode(enabled bool) Option {
	return func(f *Forwarder) { f.serverMode = enabled }
}

// WithExecutor sets the executor deliveries run in. Default Inline.
func WithExecutor(e Executor) Option {
	return func(f *Forwarder) {
		if e != nil {
			f.exec = e
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Forwarder) { f.logger = l }
}
