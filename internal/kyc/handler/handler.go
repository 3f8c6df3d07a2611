// Package handler exposes the verification-vendor endpoints. The webhook is
// public, the direct-upload route speaks multipart instead of JSON, and
// everything else follows the standard authenticated JSON surface.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"valid8/internal/kyc/service"
	"valid8/internal/platform/metrics"
	"valid8/internal/platform/middleware"
	dErrors "valid8/pkg/domain-errors"
	"valid8/pkg/platform/httputil"
)

// maxUploadBytes bounds the multipart form held in memory for the
// direct-upload route.
const maxUploadBytes = 10 << 20

// Service defines the verification operations the handler exposes.
type Service interface {
	CreateInquiry(ctx context.Context, referenceID string) (service.InquiryResult, error)
	GetInquiry(ctx context.Context, inquiryID string) (service.InquiryStatus, error)
	SDKToken(ctx context.Context, firstName, lastName string) (string, error)
	VerifyDirect(ctx context.Context, upload service.DirectUpload) (service.DirectResult, error)
	HandleWebhook(ctx context.Context, event service.WebhookEvent)
}

type Handler struct {
	logger    *slog.Logger
	kyc       Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(kycService Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		kyc:       kycService,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the verification routes with the chi router. The
// direct-upload route sits outside the JSON content-type check because it
// accepts multipart form data.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.LatencyMiddleware(h.metrics))

	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Vendor callbacks carry their own payload signature, not a session.
		r.Post("/persona/webhook", h.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.validator, h.logger))
			r.Post("/persona/create-inquiry", h.handleCreateInquiry)
			r.Get("/persona/inquiry/{inquiryID}", h.handleGetInquiry)
			r.Post("/onfido/sdk-token", h.handleSDKToken)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/persona/verify-direct", h.handleVerifyDirect)
	})

	r.Mount("/api/kyc", router)
}

func (h *Handler) writeVendorError(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	switch {
	case dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeBadRequest):
		httputil.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, action+" failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, action+" failed"))
	}
}

func (h *Handler) handleCreateInquiry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReferenceID string `json:"reference_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	result, err := h.kyc.CreateInquiry(r.Context(), req.ReferenceID)
	if err != nil {
		h.writeVendorError(w, r, "inquiry creation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetInquiry(w http.ResponseWriter, r *http.Request) {
	status, err := h.kyc.GetInquiry(r.Context(), chi.URLParam(r, "inquiryID"))
	if err != nil {
		h.writeVendorError(w, r, "inquiry lookup", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleSDKToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	token, err := h.kyc.SDKToken(r.Context(), req.FirstName, req.LastName)
	if err != nil {
		h.writeVendorError(w, r, "sdk token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"sdk_token": token})
}

func (h *Handler) handleVerifyDirect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected multipart form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	upload := service.DirectUpload{
		ReferenceID: r.FormValue("reference_id"),
		IDClass:     r.FormValue("id_class"),
	}
	var err error
	if upload.FrontImage, err = formFile(r, "front_image"); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if upload.BackImage, err = formFile(r, "back_image"); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if upload.SelfieImage, err = formFile(r, "selfie_image"); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.kyc.VerifyDirect(r.Context(), upload)
	if err != nil {
		h.writeVendorError(w, r, "direct verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// formFile reads a named file part in full. A missing part is not an error
// here; the service decides which parts are required.
func formFile(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed "+name+" part")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read "+name+" part")
	}
	return data, nil
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Data struct {
			Attributes struct {
				Name string `json:"name"`
			} `json:"attributes"`
			Relationships struct {
				Inquiry struct {
					Data struct {
						ID string `json:"id"`
					} `json:"data"`
				} `json:"inquiry"`
			} `json:"relationships"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid webhook payload"))
		return
	}

	h.kyc.HandleWebhook(r.Context(), service.WebhookEvent{
		Name:      payload.Data.Attributes.Name,
		InquiryID: payload.Data.Relationships.Inquiry.Data.ID,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
