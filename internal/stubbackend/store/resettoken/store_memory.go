package resettoken

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gatehouse/internal/stubbackend/models"
	"gatehouse/pkg/platform/sentinel"
)

// translateConsumeError converts record validation failures to sentinel errors.
func translateConsumeError(record *models.ResetTokenRecord, now time.Time) error {
	err := record.ValidateForConsume(now)
	if err == nil {
		return nil
	}
	if record.Used {
		return fmt.Errorf("%s: %w", err, sentinel.ErrAlreadyUsed)
	}
	return fmt.Errorf("%s: %w", err, sentinel.ErrExpired)
}

// InMemoryResetTokenStore stores reset tokens in memory.
type InMemoryResetTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.ResetTokenRecord
}

// New constructs an empty store.
func New() *InMemoryResetTokenStore {
	return &InMemoryResetTokenStore{tokens: make(map[string]*models.ResetTokenRecord)}
}

func (s *InMemoryResetTokenStore) Create(_ context.Context, record *models.ResetTokenRecord) error {
	if record.Token == "" {
		return errors.New("reset token is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[record.Token]; ok {
		return fmt.Errorf("reset token exists: %w", sentinel.ErrConflict)
	}
	s.tokens[record.Token] = record
	return nil
}

// Consume validates and marks the token used in one step, so a token can
// authorize at most one password change.
func (s *InMemoryResetTokenStore) Consume(_ context.Context, token string, now time.Time) (*models.ResetTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("reset token not found: %w", sentinel.ErrNotFound)
	}
	if err := translateConsumeError(record, now); err != nil {
		return record, err
	}
	record.MarkUsed()
	return record, nil
}

// DeleteExpired removes tokens expired as of now and returns how many went.
func (s *InMemoryResetTokenStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for token, record := range s.tokens {
		if !now.Before(record.ExpiresAt) {
			delete(s.tokens, token)
			deleted++
		}
	}
	return deleted, nil
}
