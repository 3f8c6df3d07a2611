// Package service implements the wizard step controllers on top of the
// onboarding state container. Each step commits its data, flips exactly its
// own progress flag and advances the step indicator; nothing enforces that
// steps run in order, matching the permissive flag semantics of the state
// model.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"valid8/internal/kyc"
	"valid8/internal/onboarding/models"
	"valid8/internal/onboarding/store"
	"valid8/internal/platform/metrics"
	id "valid8/pkg/domain"
	dErrors "valid8/pkg/domain-errors"
	audit "valid8/pkg/platform/audit"
	"valid8/pkg/platform/audit/publisher"
	"valid8/pkg/requestcontext"
)

type Service struct {
	states store.Store

	// attempts tracks the live verification attempt per user. Attempts hold
	// a mutex and a one-shot channel, so they live beside the serializable
	// wizard state rather than inside it.
	attemptMu sync.Mutex
	attempts  map[id.UserID]*kyc.Attempt

	logger  *slog.Logger
	audit   *publisher.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(states store.Store, opts ...Option) *Service {
	s := &Service{
		states:   states,
		attempts: make(map[id.UserID]*kyc.Attempt),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProgressView is the client-facing snapshot of wizard progress.
type ProgressView struct {
	Progress          models.Progress `json:"progress"`
	CurrentStep       int             `json:"current_step"`
	CompletionPercent int             `json:"completion_percent"`
	Submitted         bool            `json:"submitted"`
}

func progressView(state *models.State) ProgressView {
	return ProgressView{
		Progress:          state.Progress,
		CurrentStep:       state.CurrentStep,
		CompletionPercent: state.CompletionPercent(),
		Submitted:         state.Submitted,
	}
}

// Progress returns the wizard snapshot, opening the session on first touch.
func (s *Service) Progress(ctx context.Context) (ProgressView, error) {
	state, err := s.open(ctx)
	if err != nil {
		return ProgressView{}, err
	}
	return progressView(state), nil
}

// SetProgress merges the given flags and optionally moves the step
// indicator. Deliberately permissive: any flag can be set independent of
// prerequisites.
func (s *Service) SetProgress(ctx context.Context, patch models.ProgressPatch, currentStep *int) (ProgressView, error) {
	state, err := s.update(ctx, func(state *models.State) error {
		state.ApplyProgress(patch)
		if currentStep != nil {
			return state.SetCurrentStep(*currentStep)
		}
		return nil
	})
	if err != nil {
		return ProgressView{}, err
	}
	return progressView(state), nil
}

// IDScan records the document scan produced outside the live verification
// paths. The result always carries the full fallback for missing fields.
func (s *Service) IDScan(ctx context.Context) (models.IDScanResult, error) {
	scan := models.IDScanResult{}.WithMockFallback()
	_, err := s.update(ctx, func(state *models.State) error {
		state.SetIDScan(scan)
		return nil
	})
	if err != nil {
		return models.IDScanResult{}, err
	}
	return scan, nil
}

// Liveness reports the liveness check outcome. The biometric analysis lives
// in the vendor SDKs; this endpoint only acknowledges the step.
func (s *Service) Liveness(ctx context.Context) (bool, error) {
	if _, err := s.open(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// State returns the full collected state for the review and profile views.
func (s *Service) State(ctx context.Context) (*models.State, error) {
	return s.open(ctx)
}

// Teardown discards the user's wizard session, if any. Used on logout.
func (s *Service) Teardown(ctx context.Context) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return
	}
	s.dropAttempt(userID)
	if err := s.states.Close(ctx, userID); err != nil && !dErrors.HasCode(err, dErrors.CodeMissingContext) {
		s.logger.WarnContext(ctx, "failed to tear down onboarding session", "error", err)
	}
}

// open returns the caller's state, starting the wizard session lazily. The
// route guard has already established the user identity.
func (s *Service) open(ctx context.Context) (*models.State, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeMissingContext, "no authenticated user in context")
	}
	return s.states.Open(ctx, userID)
}

func (s *Service) update(ctx context.Context, fn func(*models.State) error) (*models.State, error) {
	if _, err := s.open(ctx); err != nil {
		return nil, err
	}
	return s.states.Update(ctx, requestcontext.UserID(ctx), fn)
}

// commitStep guards against writes after final submission and records the
// completion through audit and metrics.
func (s *Service) commitStep(ctx context.Context, step string, event audit.AuditEvent, fn func(*models.State) error) (*models.State, error) {
	state, err := s.update(ctx, func(state *models.State) error {
		if state.Submitted {
			return dErrors.New(dErrors.CodeConflict, "profile already submitted")
		}
		return fn(state)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		UserID: requestcontext.UserID(ctx),
		Action: string(event),
	})
	if s.metrics != nil {
		s.metrics.StepsCompleted.WithLabelValues(step).Inc()
	}
	return state, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}
