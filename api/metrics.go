/*
metrics.go - Prometheus instrumentation for the API

PURPOSE:
  Counts the operations that matter operationally: reconciliation runs,
  feed uploads, and align outcomes. A private registry keeps the default
  Go runtime collectors out of the scrape.

EXPOSED AT:
  GET /metrics

SEE ALSO:
  - server.go: mounts the scrape endpoint
  - handlers.go: increments these from the handlers
*/
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the API's instruments, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	reconciliationRuns prometheus.Counter
	reconciliationSecs prometheus.Histogram
	feedUploads        prometheus.Counter
	feedRowsDropped    prometheus.Counter
	alignsTotal        *prometheus.CounterVec
}

// NewMetrics creates and registers the API instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	m := &Metrics{registry: registry}

	m.reconciliationRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Name:      "runs_total",
		Help:      "Total number of reconciliation runs",
	})
	m.reconciliationSecs = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reconciler",
		Name:      "run_duration_seconds",
		Help:      "Histogram of reconciliation run duration",
		Buckets:   prometheus.DefBuckets,
	})
	m.feedUploads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Name:      "feed_uploads_total",
		Help:      "Total number of feed workbooks accepted",
	})
	m.feedRowsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Name:      "feed_rows_dropped_total",
		Help:      "Total number of feed rows dropped by the validity filter",
	})
	m.alignsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Name:      "aligns_total",
		Help:      "Total number of align attempts by outcome",
	}, []string{"outcome"}) // outcome: success | blocked | failed

	return m
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeAlign(outcome string) {
	m.alignsTotal.WithLabelValues(outcome).Inc()
}
