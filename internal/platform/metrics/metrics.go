package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	LoginsStarted          prometheus.Counter
	MFAVerified            prometheus.Counter
	SessionsRevoked        prometheus.Counter
	StepsCompleted         *prometheus.CounterVec
	ProfilesSubmitted      prometheus.Counter
	VerificationsStarted   *prometheus.CounterVec
	VerificationsCompleted *prometheus.CounterVec
	VerificationsFailed    *prometheus.CounterVec
	RequestLatency         *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers metrics against a specific registerer, so tests can use
// an isolated registry instead of the global one.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "valid8_logins_started_total",
			Help: "Total number of login attempts that reached the MFA challenge",
		}),
		MFAVerified: factory.NewCounter(prometheus.CounterOpts{
			Name: "valid8_mfa_verified_total",
			Help: "Total number of successful MFA verifications",
		}),
		SessionsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "valid8_sessions_revoked_total",
			Help: "Total number of sessions revoked via logout",
		}),
		StepsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valid8_onboarding_steps_completed_total",
			Help: "Total number of onboarding step completions by step",
		}, []string{"step"}),
		ProfilesSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "valid8_profiles_submitted_total",
			Help: "Total number of profiles submitted at review",
		}),
		VerificationsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valid8_verifications_started_total",
			Help: "Total number of identity verification attempts by provider",
		}, []string{"provider"}),
		VerificationsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valid8_verifications_completed_total",
			Help: "Total number of completed identity verifications by provider",
		}, []string{"provider"}),
		VerificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valid8_verifications_failed_total",
			Help: "Total number of failed identity verifications by provider",
		}, []string{"provider"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "valid8_http_request_duration_seconds",
			Help:    "HTTP request latency by path",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
	}
}
