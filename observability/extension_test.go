package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/lifecycle"
	"github.com/xraph/capture/observability"
)

func newTestExtension() (*sdkmetric.ManualReader, *observability.MetricsExtension) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, observability.NewMetricsExtensionWithMeter(mp.Meter("test"))
}

func newTestAction() action.Action {
	return action.New("[Countries] Load countries", nil)
}

// eventCounts collects capture.lifecycle.events keyed by status.
func eventCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "capture.lifecycle.events" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatal("expected Sum[int64] data type")
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("status"))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestMetricsExtension_Name(t *testing.T) {
	_, e := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_Hooks(t *testing.T) {
	reader, e := newTestExtension()
	ctx := context.Background()
	a := newTestAction()

	if err := e.OnActionDispatched(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnActionSuccessful(ctx, a, "s1", 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnActionErrored(ctx, a, errors.New("boom"), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnActionCanceled(ctx, a, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := eventCounts(t, reader)
	for _, s := range lifecycle.AllStatuses() {
		if counts[s.String()] != 1 {
			t.Errorf("%s: want 1, got %d", s, counts[s.String()])
		}
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	reader, e := newTestExtension()
	reg := lifecycle.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := context.Background()
	a := newTestAction()
	reg.Emit(ctx, lifecycle.Event{Status: lifecycle.Dispatched, Action: a})
	reg.Emit(ctx, lifecycle.Event{Status: lifecycle.Successful, Action: a, Snapshot: "s1"})
	reg.Emit(ctx, lifecycle.Event{Status: lifecycle.Dispatched, Action: a})
	reg.Emit(ctx, lifecycle.Event{Status: lifecycle.Canceled, Action: a})

	counts := eventCounts(t, reader)
	if counts["DISPATCHED"] != 2 {
		t.Errorf("DISPATCHED: want 2, got %d", counts["DISPATCHED"])
	}
	if counts["SUCCESSFUL"] != 1 {
		t.Errorf("SUCCESSFUL: want 1, got %d", counts["SUCCESSFUL"])
	}
	if counts["CANCELED"] != 1 {
		t.Errorf("CANCELED: want 1, got %d", counts["CANCELED"])
	}
	if counts["ERRORED"] != 0 {
		t.Errorf("ERRORED: want 0, got %d", counts["ERRORED"])
	}
}

func TestPrometheusExtension_CountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := observability.NewPrometheusExtension(reg)

	ctx := context.Background()
	a := newTestAction()
	for _, s := range []lifecycle.Status{lifecycle.Dispatched, lifecycle.Errored, lifecycle.Dispatched, lifecycle.Errored} {
		if err := p.OnEvent(ctx, lifecycle.Event{Status: s, Action: a}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := testutil.ToFloat64(p.Counter().WithLabelValues(a.Name, "ERRORED")); got != 2 {
		t.Errorf("ERRORED: want 2, got %v", got)
	}
	if got := testutil.ToFloat64(p.Counter().WithLabelValues(a.Name, "SUCCESSFUL")); got != 0 {
		t.Errorf("SUCCESSFUL: want 0, got %v", got)
	}
}

func TestPrometheusExtension_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := observability.NewPrometheusExtension(reg)
	second := observability.NewPrometheusExtension(reg)

	a := newTestAction()
	_ = second.OnEvent(context.Background(), lifecycle.Event{Status: lifecycle.Dispatched, Action: a})

	if got := testutil.ToFloat64(first.Counter().WithLabelValues(a.Name, "DISPATCHED")); got != 1 {
		t.Errorf("expected the second extension to share the first collector, got %v", got)
	}
	n, err := testutil.GatherAndCount(reg, "capture_lifecycle_events_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 series, got %d", n)
	}
}
