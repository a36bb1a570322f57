package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/store"
	"github.com/xraph/capture/stream"
)

// meterName is the instrumentation scope name for capture metrics.
const meterName = "github.com/xraph/capture"

// Metrics returns a plugin that records per-action metrics using the
// global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this plugin becomes a pass-through.
//
// Instruments:
//   - capture.action.duration (Float64Histogram): dispatch to terminal
//     signal in seconds, with attributes: action, status
//   - capture.action.executions (Int64Counter): total dispatches,
//     with attributes: action, status ("ok", "error" or "canceled")
func Metrics() store.Plugin {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics plugin using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) store.Plugin {
	// On error the API returns noop instruments.
	duration, dErr := meter.Float64Histogram(
		"capture.action.duration",
		metric.WithDescription("Duration from action dispatch to its terminal signal in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr

	executions, eErr := meter.Int64Counter(
		"capture.action.executions",
		metric.WithDescription("Total number of dispatched actions by outcome"),
		metric.WithUnit("{execution}"),
	)
	_ = eErr

	return func(ctx context.Context, state any, a action.Action, next store.Next) stream.Stream {
		start := time.Now()

		return onTerminal(next(ctx, state, a), func(status string, _ error) {
			attrs := metric.WithAttributes(
				attribute.String("action", a.Name),
				attribute.String("status", status),
			)
			duration.Record(ctx, time.Since(start).Seconds(), attrs)
			executions.Add(ctx, 1, attrs)
		})
	}
}
