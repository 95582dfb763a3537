// Package api – Prometheus instrumentation for outbound traffic.
//
// Every request through Client.do is counted and timed. Labels are kept at
// bounded cardinality:
//
//   - method: HTTP verb (GET/POST/...)
//   - op:     the logical endpoint name ("token_balance", "send_message", ...)
//     rather than the raw URL, which may embed participant or appointment ids
//   - status: numeric status code string, or "transport_error" when the
//     request never produced a response
package api

import "github.com/prometheus/client_golang/prometheus"

var (
	// requestsTotal counts outbound requests by verb, logical endpoint, and
	// outcome.
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetcare_client_requests_total",
			Help: "Total number of outbound API requests.",
		},
		[]string{"method", "op", "status"},
	)

	// requestDuration records end-to-end request latency in seconds. Status is
	// intentionally omitted to keep histogram cardinality low.
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vetcare_client_request_duration_seconds",
			Help:    "Duration of outbound API requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "op"},
	)

	// requestsInflight gauges concurrently outstanding requests.
	requestsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vetcare_client_requests_inflight",
			Help: "Current number of in-flight outbound API requests.",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, requestsInflight)
}
