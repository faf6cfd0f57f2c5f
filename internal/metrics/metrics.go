// Package metrics holds the prometheus collectors for the HTTP surface and
// the auth/verification domain.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	CodesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verification_codes_issued_total",
		Help: "Verification codes created and dispatched.",
	})
	CodesVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_codes_verified_total",
			Help: "Verification attempts by outcome.",
		},
		[]string{"outcome"},
	)
	CodesSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verification_codes_swept_total",
		Help: "Expired or used verification codes removed by the sweeper.",
	})

	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by method and outcome.",
		},
		[]string{"method", "outcome"},
	)
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_refreshes_total",
			Help: "Access token refreshes by outcome.",
		},
		[]string{"outcome"},
	)
)

func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		RequestCount,
		RequestDuration,
		CodesIssued,
		CodesVerified,
		CodesSwept,
		Logins,
		TokenRefreshes,
	)
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
