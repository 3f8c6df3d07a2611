package service

import (
	"context"
	"strings"

	"valid8/internal/onboarding/models"
	dErrors "valid8/pkg/domain-errors"
	audit "valid8/pkg/platform/audit"
)

// PersonalInfoRequest carries the personal-info step submission. Skip
// bypasses the aliases/address/contact sub-states and commits the fixed
// fallback record.
type PersonalInfoRequest struct {
	Skip    bool           `json:"skip,omitempty"`
	Email   string         `json:"email"`
	Phone   string         `json:"phone"`
	Aliases []string       `json:"aliases"`
	Address models.Address `json:"address"`
}

func (r *PersonalInfoRequest) Validate() error {
	if r.Skip {
		return nil
	}
	if strings.TrimSpace(r.Address.Street) == "" {
		return dErrors.New(dErrors.CodeValidation, "street is required")
	}
	if strings.TrimSpace(r.Address.City) == "" {
		return dErrors.New(dErrors.CodeValidation, "city is required")
	}
	return nil
}

// SavePersonalInfo commits the record and completes the step. The committed
// record always holds exactly one address.
func (s *Service) SavePersonalInfo(ctx context.Context, req PersonalInfoRequest) (ProgressView, error) {
	if err := req.Validate(); err != nil {
		return ProgressView{}, err
	}

	info := models.MockPersonalInfo()
	if !req.Skip {
		info = models.PersonalInfo{
			Email:     strings.TrimSpace(req.Email),
			Phone:     strings.TrimSpace(req.Phone),
			Aliases:   req.Aliases,
			Addresses: []models.Address{req.Address},
		}
		if info.Aliases == nil {
			info.Aliases = []string{}
		}
		if info.Email == "" {
			info.Email = models.MockPersonalInfo().Email
		}
		if info.Phone == "" {
			info.Phone = models.MockPersonalInfo().Phone
		}
	}

	state, err := s.commitStep(ctx, "personal_info", audit.EventPersonalInfoCompleted, func(state *models.State) error {
		state.SetPersonalInfo(info)
		state.Progress.PersonalInfo = true
		return state.SetCurrentStep(3)
	})
	if err != nil {
		return ProgressView{}, err
	}
	return progressView(state), nil
}
