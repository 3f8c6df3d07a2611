package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"valid8/internal/platform/metrics"
	"valid8/internal/platform/middleware"
	"valid8/internal/profile/service"
	dErrors "valid8/pkg/domain-errors"
	"valid8/pkg/platform/httputil"
)

// Service defines the profile preview operation.
type Service interface {
	Profile(ctx context.Context) (service.View, error)
}

// Handler serves the profile preview endpoint.
type Handler struct {
	logger    *slog.Logger
	profile   Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(profileService Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		profile:   profileService,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the profile routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(15 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))
	router.Use(middleware.RequireAuth(h.validator, h.logger))

	router.Get("/profile", h.handleProfile)

	r.Mount("/api/user", router)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	view, err := h.profile.Profile(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "profile lookup failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "profile lookup failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}
