package resettoken

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/stubbackend/models"
	"gatehouse/pkg/platform/sentinel"
)

type ResetTokenStoreSuite struct {
	suite.Suite
	store *InMemoryResetTokenStore
	ctx   context.Context
	now   time.Time
}

func (s *ResetTokenStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func TestResetTokenStoreSuite(t *testing.T) {
	suite.Run(t, new(ResetTokenStoreSuite))
}

func (s *ResetTokenStoreSuite) record(token string, ttl time.Duration) *models.ResetTokenRecord {
	return &models.ResetTokenRecord{
		Token:     token,
		UserID:    uuid.New(),
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(ttl),
	}
}

func (s *ResetTokenStoreSuite) TestConsume() {
	s.Run("valid token is consumed once", func() {
		rec := s.record("tok-valid", time.Minute)
		s.Require().NoError(s.store.Create(s.ctx, rec))

		got, err := s.store.Consume(s.ctx, "tok-valid", s.now.Add(30*time.Second))
		s.Require().NoError(err)
		s.Equal(rec.UserID, got.UserID)
		s.True(got.Used)

		_, err = s.store.Consume(s.ctx, "tok-valid", s.now.Add(31*time.Second))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("expired token", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.record("tok-expired", time.Minute)))
		_, err := s.store.Consume(s.ctx, "tok-expired", s.now.Add(time.Minute))
		s.Require().ErrorIs(err, sentinel.ErrExpired)
	})

	s.Run("unknown token", func() {
		_, err := s.store.Consume(s.ctx, "nope", s.now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ResetTokenStoreSuite) TestConcurrentConsumeHasOneWinner() {
	s.Require().NoError(s.store.Create(s.ctx, s.record("tok-race", time.Hour)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Consume(s.ctx, "tok-race", s.now); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}

func (s *ResetTokenStoreSuite) TestCreateAndCleanup() {
	s.Require().NoError(s.store.Create(s.ctx, s.record("a", time.Minute)))
	s.Require().NoError(s.store.Create(s.ctx, s.record("b", time.Hour)))
	s.Require().ErrorIs(s.store.Create(s.ctx, s.record("a", time.Minute)), sentinel.ErrConflict)
	s.Require().Error(s.store.Create(s.ctx, s.record("", time.Minute)))

	deleted, err := s.store.DeleteExpired(s.ctx, s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, deleted)

	_, err = s.store.Consume(s.ctx, "a", s.now)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
