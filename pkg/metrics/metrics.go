// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultSuccess      = "success"
	ResultNotFound     = "not_found"
	ResultInvalidToken = "invalid_token"
	ResultSendFailed   = "send_failed"
	ResultError        = "error"
	ResultFailure      = "failure"
)

var (
	resetEmailRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passwordreset_email_requests_total",
			Help: "Password reset email requests by result",
		},
		[]string{"result"},
	)

	resetConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passwordreset_confirmations_total",
			Help: "Password reset confirmations by result",
		},
		[]string{"result"},
	)

	logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	registrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of user registrations",
		},
	)
)

func RecordResetEmailRequest(result string) {
	resetEmailRequests.WithLabelValues(result).Inc()
}

func RecordResetConfirmation(result string) {
	resetConfirmations.WithLabelValues(result).Inc()
}

func RecordLogin(result string) {
	logins.WithLabelValues(result).Inc()
}

func RecordRegistration() {
	registrations.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
