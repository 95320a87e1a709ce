package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resquick_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resquick_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resquick_submissions_total",
			Help: "Application submissions by outcome (accepted, rejected, error)",
		},
		[]string{"outcome"},
	)

	Assessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resquick_assessments_total",
			Help: "AI damage assessments by outcome (reviewed, failed, error)",
		},
		[]string{"outcome"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resquick_login_attempts_total",
			Help: "Login attempts by principal kind and result",
		},
		[]string{"kind", "result"},
	)
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
