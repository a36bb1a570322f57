package store

import "log/slog"

// Option configures a Store.
type Option func(*Store)

// WithPlugin appends p to the plugin chain. Plugins run in the order
// they are added, the first one outermost.
func WithPlugin(p Plugin) Option {
	return func(s *Store) {
		if p != nil {
			s.plugins = append(s.plugins, p)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithHandler registers fn for actions named name.
func WithHandler(name string, fn Handler, opts ...HandlerOption) Option {
	return func(s *Store) {
		if err := s.handlers.register(name, fn, opts...); err != nil && s.err == nil {
			s.err = err
		}
	}
}
