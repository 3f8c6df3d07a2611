package service

import (
	"context"
	"strings"

	"valid8/internal/onboarding/models"
	audit "valid8/pkg/platform/audit"
)

// EducationRequest carries the education step submission. A no-degree level
// skips the details sub-state and commits an empty-detail entry.
type EducationRequest struct {
	Level          string `json:"level"`
	Institution    string `json:"institution"`
	FieldOfStudy   string `json:"field_of_study"`
	GraduationYear string `json:"graduation_year"`
}

// SaveEducation commits one education entry and completes the step. Missing
// details on a degree level fall back to the fixed defaults, matching the
// mock-first failure semantics of the other steps.
func (s *Service) SaveEducation(ctx context.Context, req EducationRequest) (ProgressView, error) {
	level, err := models.ParseEducationLevel(req.Level)
	if err != nil {
		return ProgressView{}, err
	}

	entry := models.NoDegreeEntry
	if level != models.LevelNoDegree {
		entry = models.EducationEntry{
			Level:          string(level),
			Institution:    fallback(req.Institution, "UCLA"),
			FieldOfStudy:   fallback(req.FieldOfStudy, "Computer Science"),
			GraduationYear: fallback(req.GraduationYear, "2012"),
		}
	}

	state, err := s.commitStep(ctx, "education", audit.EventEducationCompleted, func(state *models.State) error {
		state.AddEducation(entry)
		state.Progress.Education = true
		return state.SetCurrentStep(4)
	})
	if err != nil {
		return ProgressView{}, err
	}
	return progressView(state), nil
}

func fallback(value, mock string) string {
	if strings.TrimSpace(value) == "" {
		return mock
	}
	return value
}
