package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/store"
	"github.com/xraph/capture/stream"
)

// TimeoutMetaKey is the action Meta key that overrides the default
// deadline for one dispatch. Its value must be a time.Duration.
const TimeoutMetaKey = "timeout"

// Timeout returns a plugin that enforces a per-action handler deadline.
// The handler context is cancelled after d, or after the duration stored
// under TimeoutMetaKey, and released when the result stream terminates.
// A non-positive deadline disables the plugin for that action.
func Timeout(d time.Duration, logger *slog.Logger) store.Plugin {
	return func(ctx context.Context, state any, a action.Action, next store.Next) stream.Stream {
		timeout := d
		if v, ok := a.Meta[TimeoutMetaKey].(time.Duration); ok {
			timeout = v
		}
		if timeout <= 0 {
			return next(ctx, state, a)
		}

		logger.Debug("action timeout set",
			slog.String("action_id", a.ID.String()),
			slog.Duration("timeout", timeout),
		)
		ctx, cancel := context.WithTimeout(ctx, timeout)
		res := next(ctx, state, a)
		if res == nil {
			cancel()
			return nil
		}
		return stream.Finally(res, cancel)
	}
}
