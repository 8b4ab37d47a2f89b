// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bboard_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RegistrationsTotal counts accepted registrations.
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bboard_registrations_total",
		Help: "Total number of accepted self-registrations",
	})

	// ActivationsTotal counts activation attempts by outcome.
	ActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bboard_activations_total",
		Help: "Activation link redemptions by outcome",
	}, []string{"outcome"})

	// EmailsTotal counts outbound emails by kind and result.
	EmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bboard_emails_total",
		Help: "Outbound emails by kind and result",
	}, []string{"kind", "result"})

	// CommentsTotal counts stored comments.
	CommentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bboard_comments_total",
		Help: "Total number of stored comments",
	})

	// CaptchaFailuresTotal counts rejected CAPTCHA assertions by form.
	CaptchaFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bboard_captcha_failures_total",
		Help: "Rejected CAPTCHA assertions by form",
	}, []string{"form"})

	// AccountDeletionsTotal counts self-service account deletions.
	AccountDeletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bboard_account_deletions_total",
		Help: "Total number of self-service account deletions",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordEmail increments the email counter for one delivery attempt.
func RecordEmail(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	EmailsTotal.WithLabelValues(kind, result).Inc()
}
