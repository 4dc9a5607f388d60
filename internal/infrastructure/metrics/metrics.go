package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// HTTPRequestsTotal counts requests by method, route and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		},
		[]string{"method", "endpoint"},
	)

	// VerificationRequests counts validation API calls by result kind.
	VerificationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_verification_requests_total",
			Help: "Email validation API requests by outcome",
		},
		[]string{"outcome"},
	)

	// EmailsSent counts delivery attempts of scheduled emails.
	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Scheduled emails handed to the delivery provider by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration, VerificationRequests, EmailsSent)
}
