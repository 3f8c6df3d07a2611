package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authModel "valid8/internal/auth/models"
	"valid8/internal/platform/metrics"
	"valid8/internal/platform/middleware"
	dErrors "valid8/pkg/domain-errors"
	"valid8/pkg/platform/httputil"
)

// Service defines the interface for auth operations.
type Service interface {
	Login(ctx context.Context, req authModel.LoginRequest, userAgent, ipAddress string) (*authModel.LoginResult, error)
	VerifyMFA(ctx context.Context, req authModel.MFARequest, userAgent, ipAddress string) (*authModel.MFAResult, error)
	Logout(ctx context.Context) error
	ListSessions(ctx context.Context) ([]authModel.SessionSummary, error)
}

// Handler handles login, MFA, logout and session listing endpoints.
type Handler struct {
	logger    *slog.Logger
	auth      Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(auth Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		auth:      auth,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the auth routes with the chi router. Login and the MFA
// challenge are public; logout and session listing require a bearer token.
func (h *Handler) Register(r chi.Router) {
	authRouter := chi.NewRouter()
	authRouter.Use(middleware.Recovery(h.logger))
	authRouter.Use(middleware.RequestID)
	authRouter.Use(middleware.Logger(h.logger))
	authRouter.Use(middleware.Timeout(30 * time.Second))
	authRouter.Use(middleware.ContentTypeJSON)
	authRouter.Use(middleware.LatencyMiddleware(h.metrics))

	authRouter.Post("/login", h.handleLogin)
	authRouter.Post("/mfa", h.handleMFA)

	authRouter.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(h.validator, h.logger))
		pr.Post("/logout", h.handleLogout)
		pr.Get("/sessions", h.handleListSessions)
	})

	r.Mount("/api/auth", authRouter)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req authModel.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid login request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.auth.Login(ctx, req, r.UserAgent(), clientIP(r))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "login failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "login failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req authModel.MFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid mfa request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.auth.VerifyMFA(ctx, req, r.UserAgent(), clientIP(r))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "mfa verification failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "mfa verification failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.auth.Logout(ctx); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "logout failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.auth.ListSessions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sessions",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list sessions"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
