package promquery

import (
	"github.com/prometheus/client_golang/prometheus"
)

const prometheusMetricNamespace = "power_metering"

var (
	backendQueriesTotalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "backend_queries_total",
			Help:      "Number of queries sent to the metrics backend, by result.",
		},
		[]string{"result"},
	)

	backendQueryDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "backend_query_duration_seconds",
			Help:      "Duration of queries sent to the metrics backend.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

func init() {
	prometheus.MustRegister(backendQueriesTotalCounter)
	prometheus.MustRegister(backendQueryDurationHistogram)
}
