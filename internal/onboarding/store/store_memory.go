package store

import (
	"context"
	"sync"

	"valid8/internal/onboarding/models"
	id "valid8/pkg/domain"
	dErrors "valid8/pkg/domain-errors"
)

// InMemoryStore keeps one State per user. Update serializes mutations under
// the store lock, so State itself carries no synchronization.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[id.UserID]*models.State
}

var _ Store = (*InMemoryStore)(nil)

func New() *InMemoryStore {
	return &InMemoryStore{states: make(map[id.UserID]*models.State)}
}

func (s *InMemoryStore) Open(_ context.Context, userID id.UserID) (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		state = models.NewState()
		s.states[userID] = state
	}
	return state.Clone(), nil
}

func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (*models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[userID]
	if !ok {
		return nil, missingContext()
	}
	return state.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, userID id.UserID, fn func(*models.State) error) (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return nil, missingContext()
	}
	// Mutate a scratch copy so a failed fn leaves the stored state intact.
	scratch := state.Clone()
	if err := fn(scratch); err != nil {
		return nil, err
	}
	s.states[userID] = scratch
	return scratch.Clone(), nil
}

func (s *InMemoryStore) Close(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[userID]; !ok {
		return missingContext()
	}
	delete(s.states, userID)
	return nil
}

func missingContext() error {
	return dErrors.New(dErrors.CodeMissingContext, "no active onboarding session")
}
