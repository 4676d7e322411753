package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking outcomes recorded by BookingsTotal
const (
	OutcomeCreated      = "created"
	OutcomeSeatConflict = "seat_conflict"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeStorageError = "storage_error"
	OutcomeTimeout      = "timeout"
)

type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	BookingsTotal       *prometheus.CounterVec
	BookingTxDuration   prometheus.Histogram
	DemoProvisioned     *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cinebook_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinebook_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BookingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cinebook_bookings_total",
			Help: "Booking creation attempts by outcome.",
		}, []string{"outcome"}),
		BookingTxDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cinebook_booking_tx_duration_seconds",
			Help:    "Duration of the booking creation transaction.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DemoProvisioned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cinebook_demo_provisioned_total",
			Help: "Showtimes and seats created on the fly by demo seeding.",
		}, []string{"kind"}),
	}
}

// NewNoop returns collectors registered nowhere, for tests and tools
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveBooking records one booking attempt
func (m *Metrics) ObserveBooking(outcome string, took time.Duration) {
	m.BookingsTotal.WithLabelValues(outcome).Inc()
	m.BookingTxDuration.Observe(took.Seconds())
}

// Middleware records request count and latency per matched route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
