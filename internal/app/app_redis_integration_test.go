//go:build integration

package app_test

import (
	"testing"

	"gatehouse/internal/app"
	"gatehouse/internal/auth/models"
	"gatehouse/pkg/testutil/containers"
)

// TestSessionSharedThroughRedis runs two clients against one redis key, the
// way several processes on one machine share a sign-in.
func (s *AppSuite) TestSessionSharedThroughRedis() {
	if testing.Short() {
		s.T().Skip("skipping integration test in short mode")
	}
	rc := containers.NewRedisContainer(s.T())
	s.cfg.Redis = rc.Config("gatehouse:session:app-test")

	first := s.newApp()
	_, err := first.Login(s.ctx, "admin@gatehouse.local", "adminpass1")
	s.Require().NoError(err)

	second := s.newApp()
	s.Equal(models.StateAuthenticated, second.Sessions.State())
	s.True(second.Sessions.Current().IsAdmin())

	second.Logout(s.ctx)
	third, err := app.New(s.ctx, s.cfg)
	s.Require().NoError(err)
	defer third.Close()
	s.Equal(models.StateAnonymous, third.Sessions.State())
}
