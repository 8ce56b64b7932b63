package testutil

import (
	"net/http"

	"gatehouse/internal/auth/models"
	"gatehouse/pkg/requestcontext"
)

// WithSession attaches sess to the request the way an upstream session
// middleware would.
func WithSession(req *http.Request, sess models.Session) *http.Request {
	return req.WithContext(requestcontext.WithSession(req.Context(), sess))
}

// WithUserID attaches an authenticated user ID to the request.
func WithUserID(req *http.Request, userID string) *http.Request {
	if userID == "" {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// AuthenticatedSession is a signed-in session with the given role.
func AuthenticatedSession(role models.Role) models.Session {
	return models.Session{Token: "test-token", UserID: "user-1", UserName: "tester", Role: role}
}
