// Package session persists the client's session so it survives a restart.
// Three backends share one contract: Load returns sentinel.ErrNotFound when
// nothing is stored, Save replaces the stored copy, Clear is idempotent.
package session

import (
	"context"
	"sync"

	"gatehouse/internal/auth/models"
	"gatehouse/pkg/platform/sentinel"
)

// InMemoryStore keeps the persisted copy for the lifetime of the process.
// Useful in tests and for ephemeral sessions.
type InMemoryStore struct {
	mu      sync.RWMutex
	session *models.Session
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Load(_ context.Context) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return models.Session{}, sentinel.ErrNotFound
	}
	return *s.session, nil
}

func (s *InMemoryStore) Save(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := session
	s.session = &cp
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}
