package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_bus_http_requests_total",
		Help: "Total HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "academy_bus_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	DispatchCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "academy_bus_dispatch_assignments_created_total",
		Help: "Dispatch assignments persisted by the planner.",
	})

	DispatchDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "academy_bus_dispatch_assignments_deleted_total",
		Help: "Dispatch assignments removed by per-date deletes.",
	})
)

// MetricsMiddleware records request counters and latency histograms.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		status := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(c.Method(), path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())

		return err
	}
}
