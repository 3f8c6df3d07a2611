package service

import (
	"context"
	"errors"

	"valid8/internal/kyc"
	"valid8/internal/onboarding/models"
	id "valid8/pkg/domain"
	dErrors "valid8/pkg/domain-errors"
	audit "valid8/pkg/platform/audit"
	"valid8/pkg/platform/sentinel"
	"valid8/pkg/requestcontext"
)

// IdentityView is the client-facing snapshot of the identity step.
type IdentityView struct {
	SubStep      models.IdentitySubStep `json:"sub_step"`
	Provider     models.KYCProvider     `json:"provider,omitempty"`
	IDType       models.IDType          `json:"id_type,omitempty"`
	InquiryID    string                 `json:"inquiry_id,omitempty"`
	AttemptState kyc.State              `json:"attempt_state,omitempty"`
	Scan         *models.IDScanResult   `json:"scan,omitempty"`
}

func (s *Service) identityView(ctx context.Context, state *models.State) IdentityView {
	view := IdentityView{
		SubStep:   state.Identity.SubStep,
		Provider:  state.Identity.Provider,
		IDType:    state.Identity.IDType,
		InquiryID: state.Identity.InquiryID,
		Scan:      state.IDScan,
	}
	if a := s.attempt(requestcontext.UserID(ctx)); a != nil {
		view.AttemptState = a.State()
	}
	return view
}

// attempt returns the caller's live verification attempt, if any.
func (s *Service) attempt(userID id.UserID) *kyc.Attempt {
	s.attemptMu.Lock()
	defer s.attemptMu.Unlock()
	return s.attempts[userID]
}

// beginAttempt returns the attempt for a verification run that is starting.
// A failed attempt is re-armed in place so a retry reuses its credential;
// anything else is torn down and replaced, never resumed.
func (s *Service) beginAttempt(userID id.UserID) *kyc.Attempt {
	s.attemptMu.Lock()
	defer s.attemptMu.Unlock()
	if a := s.attempts[userID]; a != nil {
		if a.State() == kyc.StateFailed {
			if err := a.Retry(); err == nil {
				return a
			}
		}
		a.Teardown()
	}
	a := kyc.NewAttempt()
	s.attempts[userID] = a
	return a
}

func (s *Service) dropAttempt(userID id.UserID) {
	s.attemptMu.Lock()
	defer s.attemptMu.Unlock()
	if a := s.attempts[userID]; a != nil {
		a.Teardown()
		delete(s.attempts, userID)
	}
}

// Identity returns the current identity sub-step state.
func (s *Service) Identity(ctx context.Context) (IdentityView, error) {
	state, err := s.open(ctx)
	if err != nil {
		return IdentityView{}, err
	}
	return s.identityView(ctx, state), nil
}

// SelectProvider chooses the verification vendor and moves to document
// selection. Reselecting resets everything downstream of the choice.
func (s *Service) SelectProvider(ctx context.Context, provider models.KYCProvider) (IdentityView, error) {
	state, err := s.update(ctx, func(state *models.State) error {
		if state.Submitted {
			return dErrors.New(dErrors.CodeConflict, "profile already submitted")
		}
		state.Identity = models.IdentityFlow{
			SubStep:  models.SubStepSelectID,
			Provider: provider,
		}
		return nil
	})
	if err != nil {
		return IdentityView{}, err
	}
	s.dropAttempt(requestcontext.UserID(ctx))
	return s.identityView(ctx, state), nil
}

// SelectIDType picks the document class. Live providers continue to the
// verification intro; the rest synthesize the fallback scan and complete
// the step immediately.
func (s *Service) SelectIDType(ctx context.Context, idType models.IDType) (IdentityView, error) {
	var completed bool
	state, err := s.update(ctx, func(state *models.State) error {
		if state.Submitted {
			return dErrors.New(dErrors.CodeConflict, "profile already submitted")
		}
		if state.Identity.Provider == "" {
			return dErrors.New(dErrors.CodeConflict, "no verification provider selected")
		}
		state.Identity.IDType = idType
		if state.Identity.Provider.Live() {
			state.Identity.SubStep = models.SubStepVerifyIntro
			return nil
		}
		completed = true
		return s.completeIdentityLocked(state, models.IDScanResult{})
	})
	if err != nil {
		return IdentityView{}, err
	}
	if completed {
		s.recordIdentityCompletion(ctx, state.Identity.Provider)
	}
	return s.identityView(ctx, state), nil
}

// VerificationMode selects between the vendor-widget path and the direct
// document-upload path.
type VerificationMode string

const (
	ModeVerification VerificationMode = "verification"
	ModePersonaAPI   VerificationMode = "persona-api"
)

// BeginVerification leaves the intro for one of the two live paths and
// starts (or re-arms, after a failure) the verification attempt.
func (s *Service) BeginVerification(ctx context.Context, mode VerificationMode) (IdentityView, error) {
	if mode != ModeVerification && mode != ModePersonaAPI {
		return IdentityView{}, dErrors.New(dErrors.CodeInvalidInput, "unknown verification mode")
	}
	state, err := s.update(ctx, func(state *models.State) error {
		if state.Identity.SubStep != models.SubStepVerifyIntro {
			return dErrors.New(dErrors.CodeConflict, "verification can only start from the intro")
		}
		if mode == ModeVerification {
			state.Identity.SubStep = models.SubStepVerification
		} else {
			state.Identity.SubStep = models.SubStepPersonaAPI
		}
		return nil
	})
	if err != nil {
		return IdentityView{}, err
	}
	s.beginAttempt(requestcontext.UserID(ctx))

	s.emit(ctx, audit.Event{
		UserID:   requestcontext.UserID(ctx),
		Action:   string(audit.EventVerificationStarted),
		Provider: string(state.Identity.Provider),
	})
	if s.metrics != nil {
		s.metrics.VerificationsStarted.WithLabelValues(string(state.Identity.Provider)).Inc()
	}
	return s.identityView(ctx, state), nil
}

// AttachInquiry records the server-issued verification session identifiers
// so cancellation can discard them, and activates the attempt now that its
// credential exists.
func (s *Service) AttachInquiry(ctx context.Context, inquiryID, sessionToken string) error {
	_, err := s.update(ctx, func(state *models.State) error {
		state.Identity.InquiryID = inquiryID
		state.Identity.SessionToken = sessionToken
		return nil
	})
	if err != nil {
		return err
	}

	if a := s.attempt(requestcontext.UserID(ctx)); a != nil {
		// TokenReady is a no-op on a re-armed attempt whose credential
		// already loaded; Initialize absorbs repeats while active.
		_ = a.TokenReady()
		if err := a.Initialize(); err != nil && !errors.Is(err, sentinel.ErrInvalidState) {
			return err
		}
	}
	return nil
}

// CancelVerification returns to the intro and discards any server-issued
// identifiers; retrying must create a fresh inquiry, never resume one. The
// attempt is cancelled terminally, so the next begin starts a new one.
func (s *Service) CancelVerification(ctx context.Context) (IdentityView, error) {
	state, err := s.update(ctx, func(state *models.State) error {
		switch state.Identity.SubStep {
		case models.SubStepVerification, models.SubStepPersonaAPI:
		default:
			return dErrors.New(dErrors.CodeConflict, "no verification in progress")
		}
		state.Identity.SubStep = models.SubStepVerifyIntro
		state.Identity.InquiryID = ""
		state.Identity.SessionToken = ""
		return nil
	})
	if err != nil {
		return IdentityView{}, err
	}
	s.dropAttempt(requestcontext.UserID(ctx))

	s.emit(ctx, audit.Event{
		UserID:   requestcontext.UserID(ctx),
		Action:   string(audit.EventVerificationCancelled),
		Provider: string(state.Identity.Provider),
	})
	return s.identityView(ctx, state), nil
}

// FailVerification records a vendor error signal. The flow returns to the
// intro and the attempt goes to failed, from which the next begin re-arms
// it instead of replacing it. Identifiers are kept so the retry can reuse
// the credential.
func (s *Service) FailVerification(ctx context.Context, reason string) (IdentityView, error) {
	state, err := s.update(ctx, func(state *models.State) error {
		switch state.Identity.SubStep {
		case models.SubStepVerification, models.SubStepPersonaAPI:
		default:
			return dErrors.New(dErrors.CodeConflict, "no verification in progress")
		}
		state.Identity.SubStep = models.SubStepVerifyIntro
		return nil
	})
	if err != nil {
		return IdentityView{}, err
	}
	if a := s.attempt(requestcontext.UserID(ctx)); a != nil {
		a.Fail(reason)
	}

	s.emit(ctx, audit.Event{
		UserID:   requestcontext.UserID(ctx),
		Action:   string(audit.EventVerificationFailed),
		Provider: string(state.Identity.Provider),
		Reason:   reason,
	})
	if s.metrics != nil {
		s.metrics.VerificationsFailed.WithLabelValues(string(state.Identity.Provider)).Inc()
	}
	return s.identityView(ctx, state), nil
}

// CompleteIdentity commits the scan produced by any verification path,
// marks the identity step done and advances to personal info.
func (s *Service) CompleteIdentity(ctx context.Context, scan models.IDScanResult) (IdentityView, error) {
	state, err := s.update(ctx, func(state *models.State) error {
		if state.Submitted {
			return dErrors.New(dErrors.CodeConflict, "profile already submitted")
		}
		return s.completeIdentityLocked(state, scan)
	})
	if err != nil {
		return IdentityView{}, err
	}
	if a := s.attempt(requestcontext.UserID(ctx)); a != nil && state.IDScan != nil {
		a.Complete(*state.IDScan)
	}

	s.recordIdentityCompletion(ctx, state.Identity.Provider)
	return s.identityView(ctx, state), nil
}

// completeIdentityLocked runs inside a store update. Every scan field falls
// back independently, so a partial vendor payload still completes the step.
func (s *Service) completeIdentityLocked(state *models.State, scan models.IDScanResult) error {
	state.SetIDScan(scan.WithMockFallback())
	state.Progress.Identity = true
	state.Identity.SubStep = models.SubStepReview
	return state.SetCurrentStep(2)
}

func (s *Service) recordIdentityCompletion(ctx context.Context, provider models.KYCProvider) {
	s.emit(ctx, audit.Event{
		UserID:   requestcontext.UserID(ctx),
		Action:   string(audit.EventIdentityCompleted),
		Provider: string(provider),
	})
	if s.metrics != nil {
		s.metrics.StepsCompleted.WithLabelValues("identity").Inc()
	}
}
