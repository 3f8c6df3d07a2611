package memory

import (
	"context"
	"sync"

	id "valid8/pkg/domain"
	audit "valid8/pkg/platform/audit"
)

// InMemoryStore keeps audit events in process memory, append-only per user.
// It favors clarity over performance.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.UserID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.UserID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.events[userID]
	out := make([]audit.Event, len(stored))
	copy(out, stored)
	return out, nil
}
