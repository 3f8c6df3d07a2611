// Package store holds per-user onboarding state in memory. Onboarding data
// is deliberately not durable: it lives for the wizard session and is gone
// when the session is torn down or the process restarts.
package store

import (
	"context"

	"valid8/internal/onboarding/models"
	id "valid8/pkg/domain"
)

// Store is the onboarding state persistence contract. Get and Update on a
// user with no open wizard session return a CodeMissingContext error.
type Store interface {
	// Open starts a wizard session for the user, or returns the existing one.
	Open(ctx context.Context, userID id.UserID) (*models.State, error)
	// Get returns a copy of the user's state.
	Get(ctx context.Context, userID id.UserID) (*models.State, error)
	// Update applies fn to the user's state under the store lock and
	// returns a copy of the result. Changes made by fn are discarded when
	// fn returns an error.
	Update(ctx context.Context, userID id.UserID, fn func(*models.State) error) (*models.State, error)
	// Close tears the session down, discarding all collected data.
	Close(ctx context.Context, userID id.UserID) error
}
