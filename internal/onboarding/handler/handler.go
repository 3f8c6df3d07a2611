package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	onboardModel "valid8/internal/onboarding/models"
	"valid8/internal/onboarding/service"
	"valid8/internal/platform/metrics"
	"valid8/internal/platform/middleware"
	dErrors "valid8/pkg/domain-errors"
	"valid8/pkg/platform/httputil"
)

// Service defines the interface for wizard operations.
type Service interface {
	Progress(ctx context.Context) (service.ProgressView, error)
	SetProgress(ctx context.Context, patch onboardModel.ProgressPatch, currentStep *int) (service.ProgressView, error)
	IDScan(ctx context.Context) (onboardModel.IDScanResult, error)
	Liveness(ctx context.Context) (bool, error)

	Identity(ctx context.Context) (service.IdentityView, error)
	SelectProvider(ctx context.Context, provider onboardModel.KYCProvider) (service.IdentityView, error)
	SelectIDType(ctx context.Context, idType onboardModel.IDType) (service.IdentityView, error)
	BeginVerification(ctx context.Context, mode service.VerificationMode) (service.IdentityView, error)
	CancelVerification(ctx context.Context) (service.IdentityView, error)
	FailVerification(ctx context.Context, reason string) (service.IdentityView, error)
	CompleteIdentity(ctx context.Context, scan onboardModel.IDScanResult) (service.IdentityView, error)

	SavePersonalInfo(ctx context.Context, req service.PersonalInfoRequest) (service.ProgressView, error)
	SaveEducation(ctx context.Context, req service.EducationRequest) (service.ProgressView, error)

	Employment(ctx context.Context) (service.EmploymentView, error)
	AddEmploymentDraft(ctx context.Context, req service.EmploymentDraftRequest) (service.EmploymentView, error)
	RemoveEmploymentDraft(ctx context.Context, index int) (service.EmploymentView, error)
	SaveEmployment(ctx context.Context, req service.SaveEmploymentRequest) (service.ProgressView, error)

	Review(ctx context.Context) (service.ReviewView, error)
	Submit(ctx context.Context) (service.ProgressView, error)
}

// Handler handles the onboarding wizard endpoints. Everything here sits
// behind the route guard.
type Handler struct {
	logger    *slog.Logger
	wizard    Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(wizard Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		wizard:    wizard,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the onboarding routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))
	router.Use(middleware.RequireAuth(h.validator, h.logger))

	router.Get("/progress", h.handleGetProgress)
	router.Post("/progress", h.handleSetProgress)
	router.Post("/id-scan", h.handleIDScan)
	router.Post("/liveness", h.handleLiveness)

	router.Get("/identity", h.handleGetIdentity)
	router.Post("/identity/provider", h.handleSelectProvider)
	router.Post("/identity/id-type", h.handleSelectIDType)
	router.Post("/identity/begin", h.handleBeginVerification)
	router.Post("/identity/cancel", h.handleCancelVerification)
	router.Post("/identity/fail", h.handleFailVerification)
	router.Post("/identity/complete", h.handleCompleteIdentity)

	router.Post("/personal-info", h.handlePersonalInfo)
	router.Post("/education", h.handleEducation)

	router.Get("/employment", h.handleGetEmployment)
	router.Post("/employment/draft", h.handleAddDraft)
	router.Delete("/employment/draft/{index}", h.handleRemoveDraft)
	router.Post("/employment", h.handleSaveEmployment)

	router.Get("/review", h.handleReview)
	router.Post("/review/submit", h.handleSubmit)

	r.Mount("/api/onboarding", router)
}

func (h *Handler) writeStepError(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	switch {
	case dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeConflict):
		httputil.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, action+" failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, action+" failed"))
	}
}

func decode[T any](w http.ResponseWriter, r *http.Request, out *T) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Progress(r.Context())
	if err != nil {
		h.writeStepError(w, r, "progress lookup", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSetProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		onboardModel.ProgressPatch
		CurrentStep *int `json:"current_step,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	view, err := h.wizard.SetProgress(r.Context(), req.ProgressPatch, req.CurrentStep)
	if err != nil {
		h.writeStepError(w, r, "progress update", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleIDScan(w http.ResponseWriter, r *http.Request) {
	scan, err := h.wizard.IDScan(r.Context())
	if err != nil {
		h.writeStepError(w, r, "id scan", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, scan)
}

func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	passed, err := h.wizard.Liveness(r.Context())
	if err != nil {
		h.writeStepError(w, r, "liveness check", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"passed": passed})
}

func (h *Handler) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Identity(r.Context())
	if err != nil {
		h.writeStepError(w, r, "identity lookup", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSelectProvider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if !decode(w, r, &req) {
		return
	}
	provider, err := onboardModel.ParseProvider(req.Provider)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.wizard.SelectProvider(r.Context(), provider)
	if err != nil {
		h.writeStepError(w, r, "provider selection", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSelectIDType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDType string `json:"id_type"`
	}
	if !decode(w, r, &req) {
		return
	}
	idType, err := onboardModel.ParseIDType(req.IDType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.wizard.SelectIDType(r.Context(), idType)
	if err != nil {
		h.writeStepError(w, r, "id type selection", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleBeginVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !decode(w, r, &req) {
		return
	}
	view, err := h.wizard.BeginVerification(r.Context(), service.VerificationMode(req.Mode))
	if err != nil {
		h.writeStepError(w, r, "verification start", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCancelVerification(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.CancelVerification(r.Context())
	if err != nil {
		h.writeStepError(w, r, "verification cancel", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleFailVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	view, err := h.wizard.FailVerification(r.Context(), req.Reason)
	if err != nil {
		h.writeStepError(w, r, "verification failure report", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCompleteIdentity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields onboardModel.IDScanResult `json:"fields"`
	}
	if !decode(w, r, &req) {
		return
	}
	view, err := h.wizard.CompleteIdentity(r.Context(), req.Fields)
	if err != nil {
		h.writeStepError(w, r, "identity completion", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handlePersonalInfo(w http.ResponseWriter, r *http.Request) {
	var req service.PersonalInfoRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.wizard.SavePersonalInfo(r.Context(), req)
	if err != nil {
		h.writeStepError(w, r, "personal info save", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"saved": true, "progress": view})
}

func (h *Handler) handleEducation(w http.ResponseWriter, r *http.Request) {
	var req service.EducationRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.wizard.SaveEducation(r.Context(), req)
	if err != nil {
		h.writeStepError(w, r, "education save", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"saved": true, "progress": view})
}

func (h *Handler) handleGetEmployment(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Employment(r.Context())
	if err != nil {
		h.writeStepError(w, r, "employment lookup", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAddDraft(w http.ResponseWriter, r *http.Request) {
	var req service.EmploymentDraftRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.wizard.AddEmploymentDraft(r.Context(), req)
	if err != nil {
		h.writeStepError(w, r, "employment draft add", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleRemoveDraft(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "draft index must be a number"))
		return
	}
	view, err := h.wizard.RemoveEmploymentDraft(r.Context(), index)
	if err != nil {
		h.writeStepError(w, r, "employment draft remove", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSaveEmployment(w http.ResponseWriter, r *http.Request) {
	var req service.SaveEmploymentRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.wizard.SaveEmployment(r.Context(), req)
	if err != nil {
		h.writeStepError(w, r, "employment save", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"saved": true, "progress": view})
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Review(r.Context())
	if err != nil {
		h.writeStepError(w, r, "review lookup", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Submit(r.Context())
	if err != nil {
		h.writeStepError(w, r, "profile submit", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"submitted": true, "progress": view})
}
