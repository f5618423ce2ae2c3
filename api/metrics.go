/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Operational counters for the simulation service, exposed at /metrics.
  Business numbers stay out of here; metrics describe the service, not
  the agency.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's instrumentation.
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	CommitsTotal     prometheus.Counter
	EventLogSize     prometheus.Gauge
	RecomputeSeconds prometheus.Histogram
}

// NewMetrics creates and registers the metric set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bi_engine",
			Name:      "simulation_events_total",
			Help:      "Accepted simulation mutations by target type.",
		}, []string{"target_type"}),
		CommitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bi_engine",
			Name:      "commits_total",
			Help:      "Committed baseline snapshots.",
		}),
		EventLogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bi_engine",
			Name:      "event_log_size",
			Help:      "Events currently held in the live session.",
		}),
		RecomputeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bi_engine",
			Name:      "recompute_duration_seconds",
			Help:      "Time spent evaluating dashboard views.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.EventsTotal, m.CommitsTotal, m.EventLogSize, m.RecomputeSeconds)
	return m
}
