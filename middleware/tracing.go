package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/store"
	"github.com/xraph/capture/stream"
)

// tracerName is the instrumentation scope name for capture tracing.
const tracerName = "github.com/xraph/capture"

// Tracing returns a plugin that wraps each action, from dispatch to the
// terminal signal of its result stream, in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is
// used and this plugin becomes a pass-through.
//
// Span attributes include: capture.action.id, capture.action.name.
// On error, the span status is set to codes.Error with the error message.
// A result stream that completes without a value sets
// capture.action.canceled=true.
func Tracing() store.Plugin {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing plugin using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) store.Plugin {
	return func(ctx context.Context, state any, a action.Action, next store.Next) stream.Stream {
		ctx, span := tracer.Start(ctx, "capture.action.dispatch",
			trace.WithAttributes(
				attribute.String("capture.action.id", a.ID.String()),
				attribute.String("capture.action.name", a.Name),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)

		res := next(ctx, state, a)
		if res == nil {
			span.SetStatus(codes.Error, "no result stream")
			span.End()
			return nil
		}

		return onTerminal(res, func(status string, err error) {
			defer span.End()

			switch status {
			case StatusError:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case StatusCanceled:
				span.SetAttributes(attribute.Bool("capture.action.canceled", true))
				span.SetStatus(codes.Ok, "")
			default:
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}
