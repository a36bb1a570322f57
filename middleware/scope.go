package middleware

import (
	"context"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/store"
	"github.com/xraph/capture/stream"
)

type actionKey struct{}

// Scope returns a plugin that attaches the dispatched action to the
// context, so handlers and inner plugins can read it with ActionFrom.
func Scope() store.Plugin {
	return func(ctx context.Context, state any, a action.Action, next store.Next) stream.Stream {
		return next(WithAction(ctx, a), state, a)
	}
}

// WithAction returns a copy of ctx carrying a.
func WithAction(ctx context.Context, a action.Action) context.Context {
	return context.WithValue(ctx, actionKey{}, a)
}

// ActionFrom returns the action attached by Scope.
func ActionFrom(ctx context.Context) (action.Action, bool) {
	a, ok := ctx.Value(actionKey{}).(action.Action)
	return a, ok
}
