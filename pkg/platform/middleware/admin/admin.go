// Package admin guards operator-only endpoints with a shared token.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"gatehouse/pkg/requestcontext"
)

// HeaderAdminToken carries the operator token.
const HeaderAdminToken = "X-Admin-Token"

const deniedBody = `{"success":false,"message":"admin token required"}`

// Guard compares requests against one configured token. A Guard with an
// empty token admits nobody.
type Guard struct {
	token  []byte
	logger *slog.Logger
}

func NewGuard(token string, logger *slog.Logger) *Guard {
	return &Guard{token: []byte(token), logger: logger}
}

// Allowed reports whether r carries the token. The comparison is constant time.
func (g *Guard) Allowed(r *http.Request) bool {
	if len(g.token) == 0 {
		return false
	}
	sent := []byte(r.Header.Get(HeaderAdminToken))
	return subtle.ConstantTimeCompare(sent, g.token) == 1
}

// Wrap answers 401 for requests without the token.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allowed(r) {
			if g.logger != nil {
				g.logger.WarnContext(r.Context(), "admin token rejected",
					"request_id", requestcontext.RequestID(r.Context()),
					"path", r.URL.Path,
					"configured", len(g.token) > 0,
				)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(deniedBody))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminToken is NewGuard(expectedToken, logger).Wrap.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return NewGuard(expectedToken, logger).Wrap
}
