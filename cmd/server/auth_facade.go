package main

import (
	"context"

	authModel "valid8/internal/auth/models"
	authservice "valid8/internal/auth/service"
	onboardservice "valid8/internal/onboarding/service"
)

// authFacade joins the auth service with the onboarding wizard so that
// logging out also discards the caller's in-flight wizard session.
type authFacade struct {
	auth   *authservice.Service
	wizard *onboardservice.Service
}

func (f *authFacade) Login(ctx context.Context, req authModel.LoginRequest, userAgent, ipAddress string) (*authModel.LoginResult, error) {
	return f.auth.Login(ctx, req, userAgent, ipAddress)
}

func (f *authFacade) VerifyMFA(ctx context.Context, req authModel.MFARequest, userAgent, ipAddress string) (*authModel.MFAResult, error) {
	return f.auth.VerifyMFA(ctx, req, userAgent, ipAddress)
}

func (f *authFacade) Logout(ctx context.Context) error {
	// Tear down the wizard first; revoking the session drops the identifiers
	// the teardown needs from context.
	f.wizard.Teardown(ctx)
	return f.auth.Logout(ctx)
}

func (f *authFacade) ListSessions(ctx context.Context) ([]authModel.SessionSummary, error) {
	return f.auth.ListSessions(ctx)
}
