//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/auth/store/session"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	store := session.NewRedis(s.redis.Client.Client, session.WithKey("gatehouse:session:test"))

	_, err := store.Load(ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	saved := models.Session{Token: "tok", UserID: "u-1", Role: models.RoleUser}
	s.Require().NoError(store.Save(ctx, saved))

	got, err := store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(saved, got)

	s.Require().NoError(store.Clear(ctx))
	s.Require().NoError(store.Clear(ctx))
	_, err = store.Load(ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestKeysAreIsolated() {
	ctx := context.Background()
	a := session.NewRedis(s.redis.Client.Client, session.WithKey("gatehouse:session:a"))
	b := session.NewRedis(s.redis.Client.Client, session.WithKey("gatehouse:session:b"))

	s.Require().NoError(a.Save(ctx, models.Session{Token: "a"}))
	_, err := b.Load(ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestTTLExpiry() {
	ctx := context.Background()
	store := session.NewRedis(s.redis.Client.Client, session.WithKey("gatehouse:session:ttl"), session.WithTTL(time.Second))

	s.Require().NoError(store.Save(ctx, models.Session{Token: "short-lived"}))
	ttl, err := s.redis.Client.TTL(ctx, "gatehouse:session:ttl").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	s.Eventually(func() bool {
		_, err := store.Load(ctx)
		return err == sentinel.ErrNotFound
	}, 5*time.Second, 100*time.Millisecond)
}
