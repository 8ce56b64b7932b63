package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"gatehouse/internal/auth/normalizer"
	"gatehouse/internal/auth/provider"
)

func newIssuer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"issuer":                                srv.URL,
				"authorization_endpoint":                srv.URL + "/auth",
				"token_endpoint":                        srv.URL + "/token",
				"jwks_uri":                              srv.URL + "/keys",
				"id_token_signing_alg_values_supported": []string{"RS256"},
			})
		case "/token":
			if err := r.ParseForm(); err != nil || r.Form.Get("code") != "auth-code" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "ya29.access",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"id_token":     "eyJ.id.token",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func approve(_ context.Context, authURL string) (provider.CallbackParams, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return provider.CallbackParams{}, err
	}
	return provider.CallbackParams{Code: "auth-code", State: u.Query().Get("state")}, nil
}

func TestOAuth2SDK(t *testing.T) {
	issuer := newIssuer(t)
	sdk := NewOAuth2SDK(oauth2.Config{RedirectURL: "http://localhost/callback"}, approve)

	require.Error(t, sdk.Initialize("client-1", nil), "endpoints are unknown before discovery")
	require.NoError(t, sdk.DiscoveryLoader(issuer.Client(), issuer.URL).Load(context.Background()))

	var credentials []normalizer.IDTokenPayload
	require.NoError(t, sdk.Initialize("client-1", func(p normalizer.IDTokenPayload) {
		credentials = append(credentials, p)
	}))

	var moment Moment
	sdk.Prompt(context.Background(), func(m Moment) { moment = m })
	assert.Equal(t, MomentNotDisplayed, moment.Kind)
	assert.True(t, moment.needsPopup())

	var resp TokenResponse
	sdk.RequestAccessToken(context.Background(), DefaultScope, func(r TokenResponse) { resp = r })
	require.Empty(t, resp.Error)
	assert.Equal(t, "ya29.access", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Positive(t, resp.ExpiresIn)

	sdk.Prompt(context.Background(), func(m Moment) { moment = m })
	assert.Equal(t, MomentDismissed, moment.Kind)
	assert.Equal(t, ReasonCredentialReturned, moment.Reason)
	require.Len(t, credentials, 1)
	assert.Equal(t, "eyJ.id.token", credentials[0].Credential)
	assert.Equal(t, "client-1", credentials[0].ClientID)
}

func TestOAuth2SDKDeclinedPopup(t *testing.T) {
	issuer := newIssuer(t)
	decline := func(context.Context, string) (provider.CallbackParams, error) {
		return provider.CallbackParams{Error: "access_denied"}, nil
	}
	sdk := NewOAuth2SDK(oauth2.Config{}, decline)
	require.NoError(t, sdk.DiscoveryLoader(issuer.Client(), issuer.URL).Load(context.Background()))
	require.NoError(t, sdk.Initialize("client-1", func(normalizer.IDTokenPayload) {}))

	var resp TokenResponse
	sdk.RequestAccessToken(context.Background(), DefaultScope, func(r TokenResponse) { resp = r })
	assert.Equal(t, "no_credential_received", resp.Error)
	assert.Empty(t, resp.AccessToken)
}

func TestDiscoveryLoaderFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	sdk := NewOAuth2SDK(oauth2.Config{}, approve)
	assert.Error(t, sdk.DiscoveryLoader(srv.Client(), srv.URL).Load(context.Background()))
}
