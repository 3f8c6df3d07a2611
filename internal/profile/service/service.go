// Package service assembles the profile preview: the user's directory
// record joined with their live onboarding progress. The preview is the
// post-wizard landing surface, so it reflects submission state rather than
// mutating anything.
package service

import (
	"context"
	"log/slog"

	authModel "valid8/internal/auth/models"
	onboardsvc "valid8/internal/onboarding/service"
)

// Status values for the profile preview.
const (
	StatusIncomplete = "incomplete"
	StatusSubmitted  = "submitted"
)

// ProgressSource reads the caller's wizard progress.
type ProgressSource interface {
	Progress(ctx context.Context) (onboardsvc.ProgressView, error)
}

type Service struct {
	wizard ProgressSource
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(wizard ProgressSource, opts ...Option) *Service {
	s := &Service{
		wizard: wizard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View is the profile preview payload: directory fields flattened alongside
// the derived status and the full wizard progress.
type View struct {
	authModel.User
	ProfileStatus      string                  `json:"profile_status"`
	OnboardingProgress onboardsvc.ProgressView `json:"onboarding_progress"`
}

// Profile builds the preview for the authenticated caller. The directory
// record falls back to the mock identity, matching the auth flow.
func (s *Service) Profile(ctx context.Context) (View, error) {
	progress, err := s.wizard.Progress(ctx)
	if err != nil {
		return View{}, err
	}

	status := StatusIncomplete
	if progress.Submitted {
		status = StatusSubmitted
	}

	return View{
		User:               authModel.MockUser,
		ProfileStatus:      status,
		OnboardingProgress: progress,
	}, nil
}
