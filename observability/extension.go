package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/lifecycle"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/xraph/capture/observability"

// Compile-time interface checks.
var (
	_ lifecycle.Hook             = (*MetricsExtension)(nil)
	_ lifecycle.ActionDispatched = (*MetricsExtension)(nil)
	_ lifecycle.ActionSuccessful = (*MetricsExtension)(nil)
	_ lifecycle.ActionErrored    = (*MetricsExtension)(nil)
	_ lifecycle.ActionCanceled   = (*MetricsExtension)(nil)
)

// MetricsExtension records lifecycle counts and terminal latency through
// OpenTelemetry. Register it as a lifecycle hook to track dispatch rates
// and outcome ratios.
//
// Instruments:
//   - capture.lifecycle.events (Int64Counter), attribute status
//   - capture.lifecycle.elapsed (Float64Histogram), seconds from dispatch
//     to the terminal signal, attribute status
type MetricsExtension struct {
	events  metric.Int64Counter
	elapsed metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	// On error the API returns noop instruments.
	events, _ := meter.Int64Counter(
		"capture.lifecycle.events",
		metric.WithDescription("Lifecycle events by status"),
		metric.WithUnit("{event}"),
	)
	elapsed, _ := meter.Float64Histogram(
		"capture.lifecycle.elapsed",
		metric.WithDescription("Time from dispatch to the terminal lifecycle event in seconds"),
		metric.WithUnit("s"),
	)
	return &MetricsExtension{events: events, elapsed: elapsed}
}

// Name implements lifecycle.Hook.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnActionDispatched implements lifecycle.ActionDispatched.
func (m *MetricsExtension) OnActionDispatched(ctx context.Context, _ action.Action) error {
	m.events.Add(ctx, 1, statusAttr(lifecycle.Dispatched))
	return nil
}

// OnActionSuccessful implements lifecycle.ActionSuccessful.
func (m *MetricsExtension) OnActionSuccessful(ctx context.Context, _ action.Action, _ any, elapsed time.Duration) error {
	m.terminal(ctx, lifecycle.Successful, elapsed)
	return nil
}

// OnActionErrored implements lifecycle.ActionErrored.
func (m *MetricsExtension) OnActionErrored(ctx context.Context, _ action.Action, _ error, elapsed time.Duration) error {
	m.terminal(ctx, lifecycle.Errored, elapsed)
	return nil
}

// OnActionCanceled implements lifecycle.ActionCanceled.
func (m *MetricsExtension) OnActionCanceled(ctx context.Context, _ action.Action, elapsed time.Duration) error {
	m.terminal(ctx, lifecycle.Canceled, elapsed)
	return nil
}

func (m *MetricsExtension) terminal(ctx context.Context, s lifecycle.Status, elapsed time.Duration) {
	attrs := statusAttr(s)
	m.events.Add(ctx, 1, attrs)
	m.elapsed.Record(ctx, elapsed.Seconds(), attrs)
}

func statusAttr(s lifecycle.Status) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("status", s.String()))
}
