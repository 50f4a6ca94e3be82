package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutcracker_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutcracker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutcracker_generations_total",
			Help: "Total number of image generation requests by outcome.",
		},
		[]string{"outcome"},
	)

	GenerationRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutcracker_generation_retries_total",
			Help: "Total number of generation retries by axis (safety, transient).",
		},
		[]string{"axis"},
	)

	QuotaDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutcracker_quota_denials_total",
			Help: "Total number of denied quota reservations by reason.",
		},
		[]string{"reason"},
	)

	SupportMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutcracker_support_messages_total",
			Help: "Total number of support messages by outcome.",
		},
		[]string{"outcome"},
	)

	SupportTicketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutcracker_support_tickets_total",
			Help: "Total number of issue-tracker actions taken by the support pipeline.",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GenerationsTotal,
		GenerationRetriesTotal,
		QuotaDenialsTotal,
		SupportMessagesTotal,
		SupportTicketsTotal,
	)
}
