package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	id "valid8/pkg/domain"
	dErrors "valid8/pkg/domain-errors"
)

// User is the identity returned after a completed MFA challenge.
type User struct {
	ID    id.UserID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Badge string    `json:"badge"`
}

// MockUser is the deterministic fallback identity used when the upstream
// directory is unreachable or not configured.
var MockUser = User{
	ID:    id.UserID(uuid.MustParse("00000000-0000-0000-0000-000000000001")),
	Name:  "Lucas Menegazzo",
	Email: "lucas.menegazzo@bix-tech.com",
	Badge: "MYJTVLH4",
}

// MockAccessToken is the deterministic fallback token issued when token
// signing is unavailable.
const MockAccessToken = "mock-token-abc123"

// Session tracks a login through its MFA challenge and authenticated life.
// A session starts MFA-pending and becomes authenticated exactly once; logout
// deletes it, which is what denies the old bearer token at the route guard.
type Session struct {
	ID            id.SessionID
	UserID        id.UserID
	Token         string
	MFAPending    bool
	Authenticated bool
	Device        string
	IPAddress     string
	CreatedAt     time.Time
	LastActivity  time.Time
}

// SessionSummary is the client-facing view of a session.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Device       string    `json:"device"`
	IPAddress    string    `json:"ip_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	IsCurrent    bool      `json:"is_current"`
}

// LoginRequest carries primary credentials. Any username/password pair is
// accepted; the fields only need to be present.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// LoginResult reports whether an MFA challenge follows.
type LoginResult struct {
	SessionToken string `json:"session_token"`
	MFARequired  bool   `json:"mfa_required"`
}

var mfaCodePattern = regexp.MustCompile(`^\d{6}$`)

// MFARequest carries the second-factor code plus the session token issued at
// login so the challenge can be tied back to its pending session.
type MFARequest struct {
	Code         string `json:"code"`
	SessionToken string `json:"session_token,omitempty"`
}

func (r *MFARequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
	r.SessionToken = strings.TrimSpace(r.SessionToken)
}

func (r *MFARequest) Validate() error {
	if !mfaCodePattern.MatchString(r.Code) {
		return dErrors.New(dErrors.CodeValidation, "code must be 6 digits")
	}
	return nil
}

// MFAResult carries the bearer token and user for an authenticated session.
type MFAResult struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}
