package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/capture/lifecycle"
)

var (
	_ lifecycle.Hook     = (*PrometheusExtension)(nil)
	_ lifecycle.Observer = (*PrometheusExtension)(nil)
)

// PrometheusExtension counts lifecycle events per action and status.
type PrometheusExtension struct {
	events *prometheus.CounterVec
}

// NewPrometheusExtension registers capture_lifecycle_events_total on
// registerer, or on the default registerer when nil. Registering twice
// reuses the existing collector.
func NewPrometheusExtension(registerer prometheus.Registerer) *PrometheusExtension {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "capture_lifecycle_events_total",
		Help: "Total lifecycle events by action and status.",
	}, []string{"action", "status"})

	return &PrometheusExtension{events: registerCounterVec(registerer, events)}
}

// Name implements lifecycle.Hook.
func (p *PrometheusExtension) Name() string { return "observability-prometheus" }

// OnEvent implements lifecycle.Observer.
func (p *PrometheusExtension) OnEvent(_ context.Context, evt lifecycle.Event) error {
	p.events.WithLabelValues(evt.Action.Name, evt.Status.String()).Inc()
	return nil
}

// Counter returns the underlying collector, for tests and custom
// exposition.
func (p *PrometheusExtension) Counter() *prometheus.CounterVec { return p.events }

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func registerCounterVec(registerer prometheus.Registerer, counter *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return counter
}
