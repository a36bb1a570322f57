package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/store"
	"github.com/xraph/capture/stream"
)

// Logging returns a plugin that logs action dispatch and outcome.
func Logging(logger *slog.Logger) store.Plugin {
	return func(ctx context.Context, state any, a action.Action, next store.Next) stream.Stream {
		logger.Debug("action dispatched",
			slog.String("action", a.Name),
			slog.String("action_id", a.ID.String()),
		)

		start := time.Now()
		return onTerminal(next(ctx, state, a), func(status string, err error) {
			elapsed := time.Since(start)

			switch status {
			case StatusError:
				logger.Error("action failed",
					slog.String("action", a.Name),
					slog.String("action_id", a.ID.String()),
					slog.Duration("elapsed", elapsed),
					slog.String("error", err.Error()),
				)
			case StatusCanceled:
				logger.Info("action canceled",
					slog.String("action", a.Name),
					slog.String("action_id", a.ID.String()),
					slog.Duration("elapsed", elapsed),
				)
			default:
				logger.Info("action completed",
					slog.String("action", a.Name),
					slog.String("action_id", a.ID.String()),
					slog.Duration("elapsed", elapsed),
				)
			}
		})
	}
}
