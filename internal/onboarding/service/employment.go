package service

import (
	"context"
	"strings"

	"valid8/internal/onboarding/models"
	dErrors "valid8/pkg/domain-errors"
	audit "valid8/pkg/platform/audit"
)

// EmploymentDraftRequest adds one pre-commit row to the draft list.
type EmploymentDraftRequest struct {
	Employer  string `json:"employer"`
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Current   bool   `json:"current"`
}

func (r EmploymentDraftRequest) entry() models.EmploymentEntry {
	return models.EmploymentEntry{
		Employer:  strings.TrimSpace(r.Employer),
		Title:     strings.TrimSpace(r.Title),
		StartDate: strings.TrimSpace(r.StartDate),
		EndDate:   strings.TrimSpace(r.EndDate),
		Current:   r.Current,
	}
}

// EmploymentView exposes the drafts and the committed sequence.
type EmploymentView struct {
	Drafts    []models.EmploymentEntry `json:"drafts"`
	Committed []models.EmploymentEntry `json:"committed"`
}

func employmentView(state *models.State) EmploymentView {
	view := EmploymentView{
		Drafts:    state.Drafts,
		Committed: state.Employment,
	}
	if view.Drafts == nil {
		view.Drafts = []models.EmploymentEntry{}
	}
	if view.Committed == nil {
		view.Committed = []models.EmploymentEntry{}
	}
	return view
}

// Employment returns the draft and committed employment rows.
func (s *Service) Employment(ctx context.Context) (EmploymentView, error) {
	state, err := s.open(ctx)
	if err != nil {
		return EmploymentView{}, err
	}
	return employmentView(state), nil
}

// AddEmploymentDraft appends a pre-commit row.
func (s *Service) AddEmploymentDraft(ctx context.Context, req EmploymentDraftRequest) (EmploymentView, error) {
	entry := req.entry()
	if entry.Employer == "" {
		return EmploymentView{}, dErrors.New(dErrors.CodeValidation, "employer is required")
	}
	state, err := s.update(ctx, func(state *models.State) error {
		if state.Submitted {
			return dErrors.New(dErrors.CodeConflict, "profile already submitted")
		}
		state.AddDraft(entry)
		return nil
	})
	if err != nil {
		return EmploymentView{}, err
	}
	return employmentView(state), nil
}

// RemoveEmploymentDraft removes the draft at index. Committed entries are
// never removable.
func (s *Service) RemoveEmploymentDraft(ctx context.Context, index int) (EmploymentView, error) {
	state, err := s.update(ctx, func(state *models.State) error {
		if state.Submitted {
			return dErrors.New(dErrors.CodeConflict, "profile already submitted")
		}
		return state.RemoveDraft(index)
	})
	if err != nil {
		return EmploymentView{}, err
	}
	return employmentView(state), nil
}

// SaveEmploymentRequest optionally supplies the rows to commit directly,
// replacing whatever drafts were staged. With no entries the staged drafts
// are committed; zero drafts still completes the step.
type SaveEmploymentRequest struct {
	Entries []EmploymentDraftRequest `json:"entries,omitempty"`
}

// SaveEmployment commits every draft, in order, into the employment
// sequence and completes the step.
func (s *Service) SaveEmployment(ctx context.Context, req SaveEmploymentRequest) (ProgressView, error) {
	state, err := s.commitStep(ctx, "employment", audit.EventEmploymentCompleted, func(state *models.State) error {
		drafts := state.Drafts
		if len(req.Entries) > 0 {
			drafts = make([]models.EmploymentEntry, 0, len(req.Entries))
			for _, entry := range req.Entries {
				drafts = append(drafts, entry.entry())
			}
		}
		for _, entry := range drafts {
			state.AddEmployment(entry)
		}
		state.Drafts = nil
		state.Progress.Employment = true
		return state.SetCurrentStep(5)
	})
	if err != nil {
		return ProgressView{}, err
	}
	return progressView(state), nil
}
