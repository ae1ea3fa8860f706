package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service collectors. It is separate from the default
// registry so tests can build as many as they need.
type Registry struct {
	reg          *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	flowRuns     *prometheus.CounterVec
	flowDuration *prometheus.HistogramVec
}

// NewRegistry constructs and registers all collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		flowRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_runs_total",
				Help: "Total flow invocations by outcome",
			},
			[]string{"flow", "status"},
		),
		flowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flow_duration_seconds",
				Help:    "Flow duration in seconds, model call included",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"flow"},
		),
	}
	r.reg.MustRegister(r.httpRequests, r.httpDuration, r.flowRuns, r.flowDuration)
	return r
}

// ObserveFlow records one flow outcome.
func (r *Registry) ObserveFlow(flow, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.flowRuns.WithLabelValues(flow, status).Inc()
	r.flowDuration.WithLabelValues(flow).Observe(d.Seconds())
}

// Middleware records request counts and latency per route.
func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.httpRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		r.httpDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes metrics in Prometheus text format.
func (r *Registry) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
