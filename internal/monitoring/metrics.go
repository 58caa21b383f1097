package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offramp_webhook_events_total",
			Help: "Off-ramp webhook deliveries by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	OrdersReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offramp_orders_reconciled_total",
			Help: "Pending orders resolved by the reconciliation worker",
		},
	)
)
