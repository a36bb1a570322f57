package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/store"
	"github.com/xraph/capture/stream"
)

// Recover returns a plugin that recovers from panics raised while the
// rest of the pipeline builds the result stream. A panic becomes an
// error stream and is logged with a stack trace.
func Recover(logger *slog.Logger) store.Plugin {
	return func(ctx context.Context, state any, a action.Action, next store.Next) (res stream.Stream) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("action pipeline panicked",
					slog.String("action", a.Name),
					slog.String("action_id", a.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				res = stream.Fail(fmt.Errorf("panic in action %s: %v", a.Name, r))
			}
		}()
		return next(ctx, state, a)
	}
}
