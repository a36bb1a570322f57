package store

import (
	"context"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/stream"
)

// Next continues the dispatch pipeline for one action.
type Next func(ctx context.Context, state any, a action.Action) stream.Stream

// Plugin intercepts dispatched actions. It receives the state at dispatch
// time and returns the action's result stream, normally the one returned
// by next. Plugins must not alter the signals of that stream.
type Plugin func(ctx context.Context, state any, a action.Action, next Next) stream.Stream

// Chain composes plugins into a single Plugin. The first plugin in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, capture) executes as:
//
//	logging → recover → capture → handler
func Chain(plugins ...Plugin) Plugin {
	return func(ctx context.Context, state any, a action.Action, next Next) stream.Stream {
		h := next
		for i := len(plugins) - 1; i >= 0; i-- {
			p := plugins[i]
			prev := h
			h = func(ctx context.Context, state any, a action.Action) stream.Stream {
				return p(ctx, state, a, prev)
			}
		}
		return h(ctx, state, a)
	}
}
