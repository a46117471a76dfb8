package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/idcheck/internal/cascade"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idcheck_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Verification metrics
	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_verifications_total",
			Help: "Total number of verifications by verdict status",
		},
		[]string{"channel", "status"}, // channel: http, websocket; status: VERIFIED, REJECTED, EXPIRED, error
	)

	verificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idcheck_verification_duration_seconds",
			Help:    "Verification duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"channel"},
	)

	verificationAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "idcheck_verification_attempts",
			Help:    "Recognition attempts spent per verification",
			Buckets: []float64{1, 2, 4, 8, 14, 20, 28, 40},
		},
	)

	// Cascade metrics
	cascadeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_cascade_attempts_total",
			Help: "Total number of OCR strategy attempts",
		},
		[]string{"image", "strategy", "outcome"},
	)

	cascadeAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idcheck_cascade_attempt_duration_seconds",
			Help:    "OCR strategy attempt duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "idcheck_upload_size_bytes",
			Help:    "Size of uploaded document files in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "idcheck_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// AttemptMetrics records every cascade attempt in the cascade metrics.
var AttemptMetrics cascade.Observer = cascade.ObserverFunc(func(e cascade.AttemptEvent) {
	cascadeAttemptsTotal.WithLabelValues(e.Image, e.Strategy, e.Outcome).Inc()
	cascadeAttemptDuration.WithLabelValues(e.Outcome).Observe(e.Duration.Seconds())
})

func recordVerification(channel string, verdict *verify.Verdict, err error, seconds float64) {
	verificationDuration.WithLabelValues(channel).Observe(seconds)
	if err != nil {
		verificationsTotal.WithLabelValues(channel, "error").Inc()
		return
	}
	verificationsTotal.WithLabelValues(channel, string(verdict.Status)).Inc()
	verificationAttempts.Observe(float64(verdict.Attempts))
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
