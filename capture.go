package capture

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/classifier"
	"github.com/xraph/capture/forwarder"
	"github.com/xraph/capture/lifecycle"
	"github.com/xraph/capture/sink"
	"github.com/xraph/capture/store"
	"github.com/xraph/capture/stream"
)

// Plugin classifies every dispatched action and forwards its lifecycle
// events to the configured sink and hooks.
//
// Create one with New, or with Install when the host is a store.Store.
type Plugin struct {
	config  Config
	logger  *slog.Logger
	factory sink.Factory
	writer  sink.Writer
	exec    forwarder.Executor
	hooks   []lifecycle.Hook
	allow   map[string]struct{}
	ignore  map[string]struct{}

	classifier *classifier.Classifier
	registry   *lifecycle.Registry
	forwarder  *forwarder.Forwarder
	background *forwarder.Background
}

// New creates a Plugin. resolve yields the host store and is called on
// the first delivery, so the store may still be under construction here.
func New(resolve forwarder.Resolver, opts ...Option) *Plugin {
	p := &Plugin{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	exec := p.exec
	if exec == nil && p.config.Async {
		p.background = forwarder.NewBackground(p.config.QueueSize, p.logger)
		exec = p.background
	}

	p.registry = lifecycle.NewRegistry(p.logger)
	if p.allow != nil || p.ignore != nil {
		p.registry.SetFilter(p.accepts)
	}

	p.forwarder = forwarder.New(p.factory, resolve,
		forwarder.WithServerMode(p.config.ServerMode),
		forwarder.WithExecutor(exec),
		forwarder.WithLogger(p.logger),
	)
	p.registry.Register(p.forwarder)
	for _, h := range p.hooks {
		p.registry.Register(h)
	}

	p.classifier = classifier.New(p.registry.Emit, classifier.WithLogger(p.logger))
	return p
}

// Install returns a store option that adds a Plugin to the store's
// plugin chain. Pass it before other plugins so that their failures are
// classified too.
func Install(opts ...Option) store.Option {
	return func(s *store.Store) {
		p := New(func() forwarder.Snapshotter { return s }, opts...)
		store.WithPlugin(p.Handle)(s)
		s.OnClose(p.Close)
	}
}

// Handle implements store.Plugin.
func (p *Plugin) Handle(ctx context.Context, state any, a action.Action, next store.Next) stream.Stream {
	return p.classifier.Handle(ctx, state, a, classifier.NextFunc(next))
}

// Registry returns the lifecycle registry events are emitted into.
func (p *Plugin) Registry() *lifecycle.Registry { return p.registry }

// Forwarder returns the sink forwarder.
func (p *Plugin) Forwarder() *forwarder.Forwarder { return p.forwarder }

// Logger returns the plugin's logger.
func (p *Plugin) Logger() *slog.Logger { return p.logger }

// Close drains background deliveries and closes a writer passed with
// WithWriter.
func (p *Plugin) Close(ctx context.Context) error {
	var errs []error
	if p.background != nil {
		if err := p.background.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Plugin) accepts(name string) bool {
	if _, ok := p.ignore[name]; ok {
		return false
	}
	if p.allow == nil {
		return true
	}
	_, ok := p.allow[name]
	return ok
}
