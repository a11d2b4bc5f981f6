// Package metrics exposes Prometheus counters for the HTTP surface and
// the domain events worth watching.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epharma_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "epharma_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "epharma_orders_created_total",
			Help: "Total number of orders created",
		},
	)

	PrescriptionsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "epharma_prescriptions_submitted_total",
			Help: "Total number of prescriptions submitted",
		},
	)

	PrescriptionsReviewed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epharma_prescriptions_reviewed_total",
			Help: "Total number of prescription reviews by verdict",
		},
		[]string{"verdict"},
	)
)

// Middleware records request count and duration per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		path := c.Route().Path
		httpRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), path).
			Observe(time.Since(start).Seconds())

		return err
	}
}
