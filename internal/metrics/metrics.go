// Package metrics exposes Prometheus instrumentation for the API server.
//
// Standard go_* and process_* collectors come from client_golang. The
// studiodesk_* series below cover HTTP traffic, realtime fan-out and the
// budget/invoice workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studiodesk_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "studiodesk_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// RealtimeEvents counts broadcast attempts by event name and result
// (published, failed, dropped).
var RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studiodesk_realtime_events_total",
	Help: "Realtime events by name and delivery result.",
}, []string{"event", "result"})

var RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "studiodesk_realtime_subscribers",
	Help: "Number of open realtime subscriptions.",
})

var BudgetTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studiodesk_budget_transitions_total",
	Help: "Budget item status changes by target status.",
}, []string{"status"})

var InvoicesGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "studiodesk_invoices_generated_total",
	Help: "Invoices created from approved budget items.",
})

var TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studiodesk_tasks_processed_total",
	Help: "Background tasks by type and result.",
}, []string{"type", "result"})

// Handler serves the default registry at GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request counts and latency keyed by the route
// template, never the raw URL, to bound label cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
