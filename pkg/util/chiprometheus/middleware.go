// Package chiprometheus provides a chi middleware recording request counts
// and latencies as Prometheus metrics.
package chiprometheus

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Middleware records metrics for every request served by a chi router.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMiddleware creates and registers the request metrics for the named
// service. It must be called once per service name.
func NewMiddleware(name string) func(next http.Handler) http.Handler {
	m := Middleware{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "chi_requests_total",
				Help:        "How many HTTP requests processed, partitioned by status code, method and route.",
				ConstLabels: prometheus.Labels{"service": name},
			},
			[]string{"code", "method", "route"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "chi_request_duration_seconds",
				Help:        "How long it took to process the request, partitioned by status code, method and route.",
				ConstLabels: prometheus.Labels{"service": name},
				Buckets:     defaultBuckets,
			},
			[]string{"code", "method", "route"},
		),
	}
	prometheus.MustRegister(m.requests)
	prometheus.MustRegister(m.latency)
	return m.handler
}

func (m Middleware) handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		route := routePattern(r)
		m.requests.WithLabelValues(code, r.Method, route).Inc()
		m.latency.WithLabelValues(code, r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routePattern returns the matched route rather than the raw path, to keep
// label cardinality bounded.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.RoutePatterns) == 0 {
		return unmatchedRoute
	}
	return strings.Replace(strings.Join(rctx.RoutePatterns, ""), "/*/", "/", -1)
}
