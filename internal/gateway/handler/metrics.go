package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doozitravel/gateway/pkg/validation"
)

var (
	dooziRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doozi_gateway_requests_total",
		Help: "Total HTTP requests by method, route, and response status.",
	}, []string{"method", "path", "status"})

	dooziRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doozi_gateway_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	dooziUpstreamCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doozi_gateway_upstream_calls_total",
		Help: "Backend calls by endpoint and outcome (ok, rejected, not_json, transport).",
	}, []string{"endpoint", "outcome"})

	dooziUpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doozi_gateway_upstream_duration_seconds",
		Help:    "Backend call duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	dooziBackendProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doozi_gateway_backend_probes_total",
		Help: "Background backend reachability probes by result.",
	}, []string{"result"})

	dooziValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doozi_gateway_validation_failures_total",
		Help: "Rejected form fields by preset and field.",
	}, []string{"preset", "field"})
)

// PrometheusMiddleware records per-request metrics labelled by route
// template, so path parameters do not explode cardinality.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		dooziRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		dooziRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler serves the Prometheus registry.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// ObserveUpstream records one backend call. It has the shape of
// backend.Observer.
func ObserveUpstream(endpoint, outcome string, elapsed time.Duration) {
	dooziUpstreamCallsTotal.WithLabelValues(endpoint, outcome).Inc()
	dooziUpstreamDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordValidationFailure counts each rejected field of one submission.
func RecordValidationFailure(preset string, errs validation.Errors) {
	for field := range errs {
		dooziValidationFailuresTotal.WithLabelValues(preset, field).Inc()
	}
}

// RecordBackendProbe records one background reachability probe.
func RecordBackendProbe(success bool) {
	if success {
		dooziBackendProbesTotal.WithLabelValues("success").Inc()
	} else {
		dooziBackendProbesTotal.WithLabelValues("failure").Inc()
	}
}
