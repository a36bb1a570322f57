package capture

import (
	"log/slog"

	"github.com/xraph/capture/forwarder"
	"github.com/xraph/capture/lifecycle"
	"github.com/xraph/capture/sink"
)

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the structured logger for the plugin.
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSink sets the sink factory events are forwarded to.
func WithSink(f sink.Factory) Option {
	return func(p *Plugin) { p.factory = f }
}

// WithWriter forwards events to w. The plugin closes w on Close.
func WithWriter(w sink.Writer, opts ...sink.WriterOption) Option {
	return func(p *Plugin) {
		p.factory = sink.FromWriter(w, opts...)
		if w != nil {
			p.writer = w
		}
	}
}

// WithServerMode disables delivery to the sink. Other hooks still run.
func WithServerMode(enabled bool) Option {
	return func(p *Plugin) { p.config.ServerMode = enabled }
}

// WithExecutor sets the executor deliveries run in. It overrides
// Config.Async.
func WithExecutor(e forwarder.Executor) Option {
	return func(p *Plugin) { p.exec = e }
}

// WithHook registers an additional lifecycle hook. Hooks run after the
// forwarder, in the order they are added.
func WithHook(h lifecycle.Hook) Option {
	return func(p *Plugin) {
		if h != nil {
			p.hooks = append(p.hooks, h)
		}
	}
}

// WithActions restricts lifecycle events to the named actions.
func WithActions(names ...string) Option {
	return func(p *Plugin) {
		p.allow = make(map[string]struct{}, len(names))
		for _, n := range names {
			p.allow[n] = struct{}{}
		}
	}
}

// WithIgnoreActions drops lifecycle events for the named actions.
func WithIgnoreActions(names ...string) Option {
	return func(p *Plugin) {
		if p.ignore == nil {
			p.ignore = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			p.ignore[n] = struct{}{}
		}
	}
}

// WithConfig applies ServerMode, Async and QueueSize from cfg.
func WithConfig(cfg Config) Option {
	return func(p *Plugin) { p.config = cfg }
}
