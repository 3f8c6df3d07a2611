// Package domain defines typed identifiers so user, session, and inquiry IDs
// cannot be mixed up at compile time. IDs are validated at trust boundaries
// via the Parse functions.
package domain

import (
	"github.com/google/uuid"

	dErrors "valid8/pkg/domain-errors"
)

type (
	// UserID identifies a user across auth and onboarding.
	UserID uuid.UUID
	// SessionID identifies a login session.
	SessionID uuid.UUID
)

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSessionID returns a fresh random session ID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// ParseUserID validates s as a non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

// ParseSessionID validates s as a non-nil UUID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s)
	return SessionID(u), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "nil id")
	}
	return u, nil
}
