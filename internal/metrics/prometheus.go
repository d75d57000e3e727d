package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	ordersSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smoothies",
			Subsystem: "orders",
			Name:      "submitted_total",
			Help:      "Total number of orders inserted.",
		},
	)

	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smoothies",
			Subsystem: "nutrition",
			Name:      "lookups_total",
			Help:      "Total number of nutrition lookups by outcome.",
		},
		[]string{"outcome"},
	)

	lookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "smoothies",
			Subsystem: "nutrition",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of nutrition lookups.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms to ~10s
		},
	)
)

func init() {
	Registry.MustRegister(
		ordersSubmitted,
		lookupsTotal,
		lookupDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
