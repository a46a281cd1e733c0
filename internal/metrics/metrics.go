// Package metrics exposes prometheus metrics for the API client and the
// tracker. All methods are safe to call on a nil *Collector, which records
// nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess        = "success"
	OutcomeTransportError = "transport_error"
	OutcomeStatusError    = "status_error"
	OutcomeDecodeError    = "decode_error"
	OutcomeStoreError     = "store_error"
)

// Collector owns a private registry and the metrics registered on it.
type Collector struct {
	registry *prometheus.Registry

	clientRequests  *prometheus.CounterVec
	clientDuration  *prometheus.HistogramVec
	polls           *prometheus.CounterVec
	trackedSubjects *prometheus.GaugeVec
}

// NewCollector creates a collector on a fresh registry, including the Go
// runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		clientRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rumpus",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		clientDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rumpus",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency by endpoint.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rumpus",
			Subsystem: "tracker",
			Name:      "polls_total",
			Help:      "Watch polls by watch and outcome.",
		}, []string{"watch", "outcome"}),
		trackedSubjects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rumpus",
			Subsystem: "tracker",
			Name:      "tracked_subjects",
			Help:      "Subjects returned by the latest poll of each watch.",
		}, []string{"watch"}),
	}

	c.registry.MustRegister(
		c.clientRequests,
		c.clientDuration,
		c.polls,
		c.trackedSubjects,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveRequest records one API request.
func (c *Collector) ObserveRequest(endpoint, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.clientRequests.WithLabelValues(endpoint, outcome).Inc()
	c.clientDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObservePoll records one watch poll and, on success, its subject count.
func (c *Collector) ObservePoll(watch, outcome string, subjects int) {
	if c == nil {
		return
	}
	c.polls.WithLabelValues(watch, outcome).Inc()
	if outcome == OutcomeSuccess {
		c.trackedSubjects.WithLabelValues(watch).Set(float64(subjects))
	}
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
