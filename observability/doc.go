// Package observability provides lifecycle hooks that record
// system-wide action outcome counters. MetricsExtension reports through
// OpenTelemetry and PrometheusExtension through a Prometheus registerer.
//
// For per-dispatch tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
