package service

import (
	"context"

	"valid8/internal/onboarding/models"
	audit "valid8/pkg/platform/audit"
	"valid8/pkg/requestcontext"
)

// ReviewView is the read-only summary shown before submission.
type ReviewView struct {
	Scan         *models.IDScanResult     `json:"scan,omitempty"`
	PersonalInfo *models.PersonalInfo     `json:"personal_info,omitempty"`
	Education    []models.EducationEntry  `json:"education"`
	Employment   []models.EmploymentEntry `json:"employment"`
	Progress     ProgressView             `json:"progress"`
}

// Review assembles the accumulated state for the review step.
func (s *Service) Review(ctx context.Context) (ReviewView, error) {
	state, err := s.open(ctx)
	if err != nil {
		return ReviewView{}, err
	}
	view := ReviewView{
		Scan:         state.IDScan,
		PersonalInfo: state.PersonalInfo,
		Education:    state.Education,
		Employment:   state.Employment,
		Progress:     progressView(state),
	}
	if view.Education == nil {
		view.Education = []models.EducationEntry{}
	}
	if view.Employment == nil {
		view.Employment = []models.EmploymentEntry{}
	}
	return view, nil
}

// Submit marks the review flag and moves the wizard into its terminal
// submitted state. No aggregate is sent anywhere; the profile endpoint
// reads the same container. Submitting twice is a no-op.
func (s *Service) Submit(ctx context.Context) (ProgressView, error) {
	var already bool
	state, err := s.update(ctx, func(state *models.State) error {
		if state.Submitted {
			already = true
			return nil
		}
		state.Progress.Review = true
		state.Submitted = true
		return nil
	})
	if err != nil {
		return ProgressView{}, err
	}

	if !already {
		s.emit(ctx, audit.Event{
			UserID: requestcontext.UserID(ctx),
			Action: string(audit.EventProfileSubmitted),
		})
		if s.metrics != nil {
			s.metrics.ProfilesSubmitted.Inc()
			s.metrics.StepsCompleted.WithLabelValues("review").Inc()
		}
	}
	return progressView(state), nil
}
