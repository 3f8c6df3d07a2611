// Package audit defines the audit event model emitted from domain logic.
// Events stay transport-agnostic so stores and sinks can fan out.
package audit

import (
	"time"

	id "valid8/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance,
	// e.g. identity verification outcomes and profile submissions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring,
	// e.g. auth failures and session revocations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging,
	// e.g. step completions and token issuance. Can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	Reason    string
	// Provider names the KYC vendor for verification events.
	Provider string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}

type AuditEvent string

const (
	// Auth events
	EventLoginStarted   AuditEvent = "login_started"
	EventMFAVerified    AuditEvent = "mfa_verified"
	EventSessionRevoked AuditEvent = "session_revoked"
	EventAuthFailed     AuditEvent = "auth_failed"

	// Onboarding events
	EventIdentityCompleted     AuditEvent = "identity_completed"
	EventPersonalInfoCompleted AuditEvent = "personal_info_completed"
	EventEducationCompleted    AuditEvent = "education_completed"
	EventEmploymentCompleted   AuditEvent = "employment_completed"
	EventProfileSubmitted      AuditEvent = "profile_submitted"

	// Verification events
	EventVerificationStarted   AuditEvent = "verification_started"
	EventVerificationCompleted AuditEvent = "verification_completed"
	EventVerificationFailed    AuditEvent = "verification_failed"
	EventVerificationCancelled AuditEvent = "verification_cancelled"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventProfileSubmitted:      CategoryCompliance,
	EventVerificationCompleted: CategoryCompliance,
	EventVerificationFailed:    CategoryCompliance,

	EventSessionRevoked: CategorySecurity,
	EventAuthFailed:     CategorySecurity,

	EventLoginStarted:          CategoryOperations,
	EventMFAVerified:           CategoryOperations,
	EventIdentityCompleted:     CategoryOperations,
	EventPersonalInfoCompleted: CategoryOperations,
	EventEducationCompleted:    CategoryOperations,
	EventEmploymentCompleted:   CategoryOperations,
	EventVerificationStarted:   CategoryOperations,
	EventVerificationCancelled: CategoryOperations,
}

// CategoryOf returns the category for a known event, defaulting to
// operations for unclassified actions.
func CategoryOf(action AuditEvent) EventCategory {
	if c, ok := eventCategories[action]; ok {
		return c
	}
	return CategoryOperations
}
