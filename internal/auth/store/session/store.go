// Package session persists login sessions from the MFA-pending state through
// authentication and logout. Lookup by opaque token serves the login flow;
// lookup by ID serves bearer-token validation on every guarded request.
package session

import (
	"context"

	"valid8/internal/auth/models"
	id "valid8/pkg/domain"
)

// Store is the session persistence contract. Implementations return
// sentinel.ErrNotFound for unknown sessions.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, sessionID id.SessionID) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error)
	DeleteByUser(ctx context.Context, userID id.UserID) error
}
