package session

import (
	"context"
	"sync"

	"valid8/internal/auth/models"
	id "valid8/pkg/domain"
	"valid8/pkg/platform/sentinel"
)

// InMemorySessionStore keeps sessions in process memory. It is the default
// backing when no Redis URL is configured.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
	byToken  map[string]id.SessionID
}

var _ Store = (*InMemorySessionStore)(nil)

func New() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[id.SessionID]*models.Session),
		byToken:  make(map[string]id.SessionID),
	}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	if session.Token != "" {
		s.byToken[session.Token] = session.ID
	}
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *InMemorySessionStore) FindByToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *InMemorySessionStore) Update(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *session
	s.sessions[session.ID] = &copied
	if session.Token != "" {
		s.byToken[session.Token] = session.ID
	}
	return nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byToken, session.Token)
	delete(s.sessions, sessionID)
	return nil
}

func (s *InMemorySessionStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Session
	for _, session := range s.sessions {
		if session.UserID == userID {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemorySessionStore) DeleteByUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for sessionID, session := range s.sessions {
		if session.UserID == userID {
			delete(s.byToken, session.Token)
			delete(s.sessions, sessionID)
			found = true
		}
	}
	if !found {
		return sentinel.ErrNotFound
	}
	return nil
}
