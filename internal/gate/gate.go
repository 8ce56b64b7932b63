// Package gate decides, for every navigation, whether the requested view
// renders or the visitor is redirected. All variants are one Gate type
// parameterized by an allow predicate and a deny decision. Evaluation is
// pure and safe to call on every render.
package gate

import (
	"net/url"
	"strings"

	"gatehouse/internal/auth/models"
)

// Decision is the outcome of evaluating a gate.
type Decision string

const (
	DecisionRender                Decision = "RENDER"
	DecisionRedirectAnonymous     Decision = "REDIRECT_TO_ANONYMOUS_AREA"
	DecisionRedirectAuthenticated Decision = "REDIRECT_TO_AUTHENTICATED_AREA"
	DecisionRedirectResetEntry    Decision = "REDIRECT_TO_RESET_ENTRY"
	// DecisionLoading renders a neutral indicator, never the guarded content.
	DecisionLoading Decision = "LOADING"
)

// IsRedirect reports whether d leaves the current location.
func (d Decision) IsRedirect() bool {
	switch d {
	case DecisionRedirectAnonymous, DecisionRedirectAuthenticated, DecisionRedirectResetEntry:
		return true
	default:
		return false
	}
}

func (d Decision) String() string { return string(d) }

// Location is the navigation being evaluated. Pending marks a location whose
// query has not been read yet.
type Location struct {
	Path    string
	Query   url.Values
	Pending bool
}

// ParseLocation accepts a path with an optional query, or a full URL.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Location{}, err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Location{Path: path, Query: u.Query()}, nil
}

// ResetToken returns the reset token carried by the location.
func (l Location) ResetToken() models.ResetToken {
	return models.ResetTokenFromQuery(l.Query)
}

func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Targets are the redirect destinations.
type Targets struct {
	AnonymousEntry     string
	AuthenticatedEntry string
	ResetEntry         string
}

func DefaultTargets() Targets {
	return Targets{
		AnonymousEntry:     "/login",
		AuthenticatedEntry: "/home",
		ResetEntry:         "/forgot-password",
	}
}

// Target returns the path a redirect decision leads to, or "" for a decision
// that stays put.
func (t Targets) Target(d Decision) string {
	switch d {
	case DecisionRedirectAnonymous:
		return t.AnonymousEntry
	case DecisionRedirectAuthenticated:
		return t.AuthenticatedEntry
	case DecisionRedirectResetEntry:
		return t.ResetEntry
	default:
		return ""
	}
}

// Gate is one route guard.
type Gate struct {
	name  string
	allow func(models.Session, Location) bool
	deny  func(models.Session, Location) Decision
	// waits is set for gates that read the location and must not decide
	// before it is settled.
	waits bool
}

// New builds a gate that renders when allow holds and otherwise returns deny.
func New(name string, allow func(models.Session, Location) bool, deny func(models.Session, Location) Decision) Gate {
	return Gate{name: name, allow: allow, deny: deny}
}

func (g Gate) Name() string {
	if g.name == "" {
		return "none"
	}
	return g.name
}

// Evaluate returns the decision for sess at loc.
func (g Gate) Evaluate(sess models.Session, loc Location) Decision {
	if g.waits && loc.Pending {
		return DecisionLoading
	}
	if g.allow == nil || g.allow(sess, loc) {
		return DecisionRender
	}
	if g.deny == nil {
		return DecisionRedirectAnonymous
	}
	return g.deny(sess, loc)
}

func anonymous(sess models.Session, _ Location) bool     { return !sess.IsAuthenticated() }
func authenticated(sess models.Session, _ Location) bool { return sess.IsAuthenticated() }
func admin(sess models.Session, _ Location) bool         { return sess.IsAdmin() }
func hasResetToken(_ models.Session, loc Location) bool  { return loc.ResetToken().Present() }

func always(d Decision) func(models.Session, Location) Decision {
	return func(models.Session, Location) Decision { return d }
}

// Ungated always renders.
var Ungated = Gate{name: "none"}

// Public renders only for anonymous visitors.
var Public = New("public", anonymous, always(DecisionRedirectAuthenticated))

// Protected renders only for authenticated sessions.
var Protected = New("protected", authenticated, always(DecisionRedirectAnonymous))

// Admin renders only for admin sessions. A signed-in non-admin is sent to the
// authenticated entry, an anonymous visitor to the anonymous entry.
var Admin = New("admin", admin, func(sess models.Session, _ Location) Decision {
	if sess.IsAuthenticated() {
		return DecisionRedirectAuthenticated
	}
	return DecisionRedirectAnonymous
})

// ResetToken renders only when the location carries a non-empty reset token.
// It checks presence only; the backend validates the token on submission.
var ResetToken = Gate{
	name:  "reset_token",
	allow: hasResetToken,
	deny:  always(DecisionRedirectAnonymous),
	waits: true,
}
