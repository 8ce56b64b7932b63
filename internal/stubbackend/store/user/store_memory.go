package user

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	authModels "gatehouse/internal/auth/models"
	"gatehouse/internal/stubbackend/models"
	"gatehouse/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when no user matches the lookup
// - ErrConflict when Save would duplicate an email or provider identity

// InMemoryUserStore keeps users in memory, indexed by id, email and provider identity.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*models.User
	byEmail    map[string]uuid.UUID
	byIdentity map[identityKey]uuid.UUID
}

type identityKey struct {
	provider authModels.ProviderName
	subject  string
}

// New constructs an empty store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:       make(map[uuid.UUID]*models.User),
		byEmail:    make(map[string]uuid.UUID),
		byIdentity: make(map[identityKey]uuid.UUID),
	}
}

// Save inserts a new user. Emails are expected to be normalized already.
func (s *InMemoryUserStore) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrConflict)
	}
	if u.Email != "" {
		if _, ok := s.byEmail[u.Email]; ok {
			return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
		}
	}
	for provider, subject := range u.Identities {
		if _, ok := s.byIdentity[identityKey{provider, subject}]; ok {
			return fmt.Errorf("%s identity already linked: %w", provider, sentinel.ErrConflict)
		}
	}

	s.byID[u.ID] = u
	if u.Email != "" {
		s.byEmail[u.Email] = u.ID
	}
	for provider, subject := range u.Identities {
		s.byIdentity[identityKey{provider, subject}] = u.ID
	}
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[email]; ok {
		return s.byID[id], nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// FindByIdentity looks a user up by provider subject.
func (s *InMemoryUserStore) FindByIdentity(_ context.Context, provider authModels.ProviderName, subject string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byIdentity[identityKey{provider, subject}]; ok {
		return s.byID[id], nil
	}
	return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
}

// Update applies mutate to the stored user under the store lock. mutate must
// not change the id, email or identities.
func (s *InMemoryUserStore) Update(_ context.Context, id uuid.UUID, mutate func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	mutate(u)
	return nil
}

// Count returns the number of stored users.
func (s *InMemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
