package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "align_authz_decisions_total",
			Help: "Authorization decisions by action, outcome and primary denial reason",
		},
		[]string{"action", "outcome", "reason"},
	)

	PublishTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "align_publish_transitions_total",
			Help: "Publish and unpublish transitions by target type",
		},
		[]string{"tenant_id", "target_type", "transition"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "align_rate_limited_total",
			Help: "Requests rejected by the per-tenant rate limiter",
		},
		[]string{"scope"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "align_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
