package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDev(t *testing.T) {
	a, err := Dev{}.Verify(context.Background(), "credential-a")
	require.NoError(t, err)
	again, err := Dev{}.Verify(context.Background(), " credential-a ")
	require.NoError(t, err)
	b, err := Dev{}.Verify(context.Background(), "credential-b")
	require.NoError(t, err)

	assert.Equal(t, a.Subject, again.Subject)
	assert.NotEqual(t, a.Subject, b.Subject)

	_, err = Dev{}.Verify(context.Background(), "  ")
	assert.Error(t, err)
}

func newIssuer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/keys",
			"userinfo_endpoint":      srv.URL + "/userinfo",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ya29.good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":         "google-sub-1",
			"email":       "ada@example.com",
			"given_name":  "Ada",
			"family_name": "Lovelace",
		})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleAccessTokenFallsBackToUserInfo(t *testing.T) {
	issuer := newIssuer(t)
	g, err := NewGoogle(context.Background(), issuer.URL, "client-1", issuer.Client())
	require.NoError(t, err)

	id, err := g.Verify(context.Background(), "ya29.good")
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "google-sub-1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}, id)

	_, err = g.Verify(context.Background(), "ya29.bad")
	assert.Error(t, err)
}

func TestNewGoogleDiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := NewGoogle(context.Background(), srv.URL, "client-1", srv.Client())
	assert.Error(t, err)
}

func TestFacebook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "id,email,first_name,last_name", r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer EAAB.good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token."}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"fb-77","email":"grace@example.com","first_name":"Grace","last_name":"Hopper"}`))
	}))
	defer srv.Close()

	f := Facebook{GraphURL: srv.URL, Client: srv.Client()}

	id, err := f.Verify(context.Background(), "EAAB.good")
	require.NoError(t, err)
	assert.Equal(t, "fb-77", id.Subject)
	assert.Equal(t, "Grace", id.FirstName)

	_, err = f.Verify(context.Background(), "EAAB.bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token.")
}
