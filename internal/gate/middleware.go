package gate

import (
	"net/http"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/platform/metrics"
	"gatehouse/pkg/requestcontext"
)

// SessionFunc reads the visitor's session from a request.
type SessionFunc func(r *http.Request) models.Session

// SessionFromContext reads the session placed by requestcontext.WithSession.
func SessionFromContext(r *http.Request) models.Session {
	return requestcontext.Session(r.Context())
}

// Middleware enforces g on every request, answering a redirect decision
// with 302 Found to its target.
func Middleware(g Gate, targets Targets, sessionOf SessionFunc, m *metrics.Metrics) func(http.Handler) http.Handler {
	return RouterMiddleware(NewRouter(Rule{Prefix: "/", Gate: g}), targets, sessionOf, m)
}

// RouterMiddleware picks the gate per request path from router.
func RouterMiddleware(router *Router, targets Targets, sessionOf SessionFunc, m *metrics.Metrics) func(http.Handler) http.Handler {
	if sessionOf == nil {
		sessionOf = SessionFromContext
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := Location{Path: r.URL.Path, Query: r.URL.Query()}
			g, d := router.Evaluate(sessionOf(r), loc)
			m.ObserveGateDecision(g.Name(), d.String())

			if !d.IsRedirect() {
				next.ServeHTTP(w, r)
				return
			}
			target := targets.Target(d)
			if target == "" || target == r.URL.Path {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}
