// Package service orchestrates the verification vendors: server-side
// inquiry creation for Persona, SDK-token minting for Onfido, the direct
// document-upload path, and webhook intake. The mock-first fallbacks mirror
// the rest of the wizard; the direct-upload path is the one place where an
// error is surfaced to the caller instead of being replaced with mock data.
package service

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"valid8/internal/kyc"
	"valid8/internal/kyc/persona"
	"valid8/internal/onboarding/models"
	"valid8/internal/platform/metrics"
	"valid8/pkg/attrs"
	dErrors "valid8/pkg/domain-errors"
	audit "valid8/pkg/platform/audit"
	"valid8/pkg/platform/audit/publisher"
	"valid8/pkg/requestcontext"
)

// PersonaAPI is the Persona client surface the service depends on.
type PersonaAPI interface {
	Enabled() bool
	TemplateID() string
	CreateInquiry(ctx context.Context, referenceID string) (*persona.Inquiry, error)
	GetInquiry(ctx context.Context, inquiryID string) (*persona.Inquiry, error)
}

// OnfidoAPI is the Onfido client surface the service depends on.
type OnfidoAPI interface {
	Enabled() bool
	SDKToken(ctx context.Context, firstName, lastName string) (string, error)
}

// IdentityAttacher records server-issued inquiry identifiers on the
// caller's identity step so cancellation can discard them.
type IdentityAttacher interface {
	AttachInquiry(ctx context.Context, inquiryID, sessionToken string) error
}

type Service struct {
	persona  PersonaAPI
	onfido   OnfidoAPI
	identity IdentityAttacher

	// group deduplicates concurrent vendor credential requests per user so a
	// double-submitted intro click creates one inquiry, not two.
	group singleflight.Group

	logger  *slog.Logger
	audit   *publisher.Publisher
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(pub *publisher.Publisher) Option {
	return func(s *Service) { s.audit = pub }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(personaAPI PersonaAPI, onfidoAPI OnfidoAPI, identity IdentityAttacher, opts ...Option) *Service {
	s := &Service{
		persona:  personaAPI,
		onfido:   onfidoAPI,
		identity: identity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InquiryResult carries the server-created inquiry, or nulls plus a note
// when the template fallback applies.
type InquiryResult struct {
	InquiryID    *string `json:"inquiry_id"`
	SessionToken *string `json:"session_token"`
	Note         string  `json:"note,omitempty"`
}

// CreateInquiry opens a Persona inquiry for the caller. Without an API key
// the client-side template flow takes over and both identifiers are null.
func (s *Service) CreateInquiry(ctx context.Context, referenceID string) (InquiryResult, error) {
	if !s.persona.Enabled() {
		return InquiryResult{Note: "No API key configured; use client-side template flow"}, nil
	}

	key := "inquiry:" + requestcontext.UserID(ctx).String()
	result, err, _ := s.group.Do(key, func() (any, error) {
		return s.persona.CreateInquiry(ctx, referenceID)
	})
	if err != nil {
		s.recordFailure(ctx, models.ProviderPersona, err)
		return InquiryResult{}, err
	}
	inquiry := result.(*persona.Inquiry)

	if err := s.identity.AttachInquiry(ctx, inquiry.ID, inquiry.SessionToken); err != nil {
		s.logger.WarnContext(ctx, "failed to attach inquiry to identity step", "error", err)
	}

	s.logAudit(ctx, models.ProviderPersona, audit.EventVerificationStarted, "inquiry_id", inquiry.ID)

	return InquiryResult{InquiryID: &inquiry.ID, SessionToken: &inquiry.SessionToken}, nil
}

// InquiryStatus is the read model for an inquiry lookup.
type InquiryStatus struct {
	Status string              `json:"status"`
	Fields models.IDScanResult `json:"fields"`
}

// GetInquiry reads inquiry status and normalized fields, synthesizing a
// mock result when Persona is not configured.
func (s *Service) GetInquiry(ctx context.Context, inquiryID string) (InquiryStatus, error) {
	if !s.persona.Enabled() {
		return InquiryStatus{Status: "mock", Fields: models.MockScan}, nil
	}

	inquiry, err := s.persona.GetInquiry(ctx, inquiryID)
	if err != nil {
		s.recordFailure(ctx, models.ProviderPersona, err)
		return InquiryStatus{}, err
	}

	status := InquiryStatus{
		Status: inquiry.Status,
		Fields: kyc.ExtractScan(inquiry.Fields),
	}
	if inquiry.Status == "completed" {
		s.recordCompletion(ctx, models.ProviderPersona, inquiry.ID)
	}
	return status, nil
}

// SDKToken mints an Onfido widget token. Without a configured vendor the
// caller's widget stays in its loading state, so the error is surfaced.
func (s *Service) SDKToken(ctx context.Context, firstName, lastName string) (string, error) {
	if !s.onfido.Enabled() {
		return "", dErrors.New(dErrors.CodeInternal, "onfido is not configured")
	}
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return "", dErrors.New(dErrors.CodeValidation, "first_name and last_name are required")
	}

	key := "sdk-token:" + requestcontext.UserID(ctx).String()
	token, err, _ := s.group.Do(key, func() (any, error) {
		return s.onfido.SDKToken(ctx, firstName, lastName)
	})
	if err != nil {
		s.recordFailure(ctx, models.ProviderOnfido, err)
		return "", err
	}

	s.logAudit(ctx, models.ProviderOnfido, audit.EventVerificationStarted)
	return token.(string), nil
}

// DirectUpload carries the direct document-verification submission.
type DirectUpload struct {
	FrontImage  []byte
	BackImage   []byte
	SelfieImage []byte
	ReferenceID string
	IDClass     string
}

func (u DirectUpload) validate() error {
	if len(u.FrontImage) == 0 {
		return dErrors.New(dErrors.CodeValidation, "front_image is required")
	}
	if len(u.SelfieImage) == 0 {
		return dErrors.New(dErrors.CodeValidation, "selfie_image is required")
	}
	return nil
}

// DirectResult is the response of the direct-upload path.
type DirectResult struct {
	Status string              `json:"status"`
	Fields models.IDScanResult `json:"fields"`
}

// VerifyDirect handles the upload path. Validation and vendor errors are
// returned to the caller for inline display and resubmission rather than
// being swallowed into mock data.
func (s *Service) VerifyDirect(ctx context.Context, upload DirectUpload) (DirectResult, error) {
	if err := upload.validate(); err != nil {
		return DirectResult{}, err
	}

	if !s.persona.Enabled() {
		// No vendor: the documents were collected, complete with mock fields.
		s.recordCompletion(ctx, models.ProviderPersona, "")
		return DirectResult{Status: "completed", Fields: models.MockScan}, nil
	}

	inquiry, err := s.persona.CreateInquiry(ctx, upload.ReferenceID)
	if err != nil {
		s.recordFailure(ctx, models.ProviderPersona, err)
		return DirectResult{}, err
	}
	if err := s.identity.AttachInquiry(ctx, inquiry.ID, inquiry.SessionToken); err != nil {
		s.logger.WarnContext(ctx, "failed to attach inquiry to identity step", "error", err)
	}

	status := inquiry.Status
	if status == "" {
		status = "pending"
	}
	result := DirectResult{Status: status, Fields: kyc.ExtractScan(inquiry.Fields)}
	if status == "completed" {
		s.recordCompletion(ctx, models.ProviderPersona, inquiry.ID)
	}
	return result, nil
}

// WebhookEvent is the subset of a Persona webhook payload the service acts on.
type WebhookEvent struct {
	Name      string
	InquiryID string
}

// HandleWebhook records the inquiry event. Verification results are pulled
// by the client via GetInquiry; the webhook is an audit trail.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) {
	switch event.Name {
	case "inquiry.completed":
		s.logAudit(ctx, models.ProviderPersona, audit.EventVerificationCompleted, "inquiry_id", event.InquiryID)
	case "inquiry.failed":
		s.logAudit(ctx, models.ProviderPersona, audit.EventVerificationFailed, "inquiry_id", event.InquiryID)
	default:
		s.logger.InfoContext(ctx, "persona webhook received",
			"event", event.Name,
			"inquiry_id", event.InquiryID,
		)
	}
}

func (s *Service) recordCompletion(ctx context.Context, provider models.KYCProvider, inquiryID string) {
	s.logAudit(ctx, provider, audit.EventVerificationCompleted, "inquiry_id", inquiryID)
	if s.metrics != nil {
		s.metrics.VerificationsCompleted.WithLabelValues(string(provider)).Inc()
	}
}

func (s *Service) recordFailure(ctx context.Context, provider models.KYCProvider, err error) {
	s.logAudit(ctx, provider, audit.EventVerificationFailed, "reason", err.Error())
	if s.metrics != nil {
		s.metrics.VerificationsFailed.WithLabelValues(string(provider)).Inc()
	}
}

// logAudit writes the structured audit log line and emits the audit event.
// Subject and reason are pulled out of the attribute list so call sites
// phrase them once, as log attrs.
func (s *Service) logAudit(ctx context.Context, provider models.KYCProvider, event audit.AuditEvent, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	s.logger.InfoContext(ctx, string(event), args...)

	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, audit.Event{
		UserID:    requestcontext.UserID(ctx),
		Action:    string(event),
		Provider:  string(provider),
		Subject:   attrs.ExtractString(attributes, "inquiry_id"),
		Reason:    attrs.ExtractString(attributes, "reason"),
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", string(event))
	}
}
