// Package metrics registers the Prometheus instruments for the alert
// pipeline and the HTTP surface.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "rescue_"

var (
	registerOnce sync.Once

	requestDuration *prometheus.HistogramVec

	authAttempts  *prometheus.CounterVec
	alertsCreated *prometheus.CounterVec
)

// Init registers the metric instruments. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		requestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request duration by method and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		)

		authAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "hardware_auth_attempts_total",
				Help: "Hardware authentication attempts by outcome",
			},
			[]string{"outcome"},
		)

		alertsCreated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_created_total",
				Help: "Alerts created by origin and priority",
			},
			[]string{"origin", "priority"},
		)

		prometheus.MustRegister(requestDuration, authAttempts, alertsCreated)
	})
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	if requestDuration == nil {
		return
	}
	requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// CountAuthAttempt records one hardware authentication attempt.
func CountAuthAttempt(outcome string) {
	if authAttempts == nil {
		return
	}
	authAttempts.WithLabelValues(outcome).Inc()
}

// CountAlertCreated records one created alert.
func CountAlertCreated(origin, priority string) {
	if alertsCreated == nil {
		return
	}
	alertsCreated.WithLabelValues(origin, priority).Inc()
}
