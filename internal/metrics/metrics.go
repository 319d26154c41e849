package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_login_attempts_total",
		Help: "Number of login attempts grouped by status.",
	}, []string{"status"})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_registrations_total",
		Help: "Number of registration attempts grouped by status.",
	}, []string{"status"})

	resetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_password_reset_requests_total",
		Help: "Number of password reset requests grouped by status.",
	}, []string{"status"})

	resetConfirms = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_password_reset_confirms_total",
		Help: "Number of password reset confirmations grouped by status.",
	}, []string{"status"})

	forbiddenMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_forbidden_post_mutations_total",
		Help: "Post mutations refused by the ownership check, by action.",
	}, []string{"action"})
)

// IncLogin increments the login counter.
func IncLogin(status string) {
	loginAttempts.WithLabelValues(status).Inc()
}

// IncRegister increments the registration counter.
func IncRegister(status string) {
	registrations.WithLabelValues(status).Inc()
}

// IncResetRequest increments the reset request counter.
func IncResetRequest(status string) {
	resetRequests.WithLabelValues(status).Inc()
}

// IncResetConfirm increments the reset confirmation counter.
func IncResetConfirm(status string) {
	resetConfirms.WithLabelValues(status).Inc()
}

// IncForbidden increments the refused-mutation counter.
func IncForbidden(action string) {
	forbiddenMutations.WithLabelValues(action).Inc()
}
