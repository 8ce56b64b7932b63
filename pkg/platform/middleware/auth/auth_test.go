package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"gatehouse/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

type stubRevocations struct {
	revoked bool
	err     error
}

func (c stubRevocations) IsTokenRevoked(context.Context, string) (bool, error) {
	return c.revoked, c.err
}

type RequireAuthSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestRequireAuthSuite(t *testing.T) {
	suite.Run(t, new(RequireAuthSuite))
}

func (s *RequireAuthSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *RequireAuthSuite) serve(v JWTValidator, rc TokenRevocationChecker, header string) (*httptest.ResponseRecorder, string, string) {
	var userID, role string
	h := RequireAuth(v, rc, s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = requestcontext.UserID(r.Context())
		role = GetRole(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, userID, role
}

func (s *RequireAuthSuite) TestRequireAuth() {
	valid := stubValidator{claims: &JWTClaims{UserID: "user-1", Role: "ADMIN", JTI: "jti-1"}}

	s.Run("valid token reaches the handler with the user in context", func() {
		rr, userID, role := s.serve(valid, nil, "Bearer tok")
		s.Equal(http.StatusNoContent, rr.Code)
		s.Equal("user-1", userID)
		s.Equal("ADMIN", role)
	})

	s.Run("missing header", func() {
		rr, _, _ := s.serve(valid, nil, "")
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.JSONEq(`{"success":false,"message":"Missing or invalid Authorization header"}`, rr.Body.String())
	})

	s.Run("invalid token", func() {
		rr, _, _ := s.serve(stubValidator{err: errors.New("bad")}, nil, "Bearer tok")
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("revoked token", func() {
		rr, _, _ := s.serve(valid, stubRevocations{revoked: true}, "Bearer tok")
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("revocation lookup failure", func() {
		rr, _, _ := s.serve(valid, stubRevocations{err: errors.New("down")}, "Bearer tok")
		s.Equal(http.StatusInternalServerError, rr.Code)
	})
}

func TestGetRoleWithoutMiddleware(t *testing.T) {
	assert.Empty(t, GetRole(context.Background()))
}
