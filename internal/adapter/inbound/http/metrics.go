package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP API metrics.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RateLimitedTotal prometheus.Counter
	AuthFailures     prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "http_requests_total",
				Help:      "Total number of API requests processed",
			},
			[]string{"route", "status"}, // status=ok/client_error/server_error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "headcatalog",
				Name:      "http_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RateLimitedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "http_rate_limited_total",
				Help:      "Requests rejected by the per-user rate limiter",
			},
		),
		AuthFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "headcatalog",
				Name:      "http_auth_failures_total",
				Help:      "Requests rejected for a missing or invalid API key",
			},
		),
	}
}
