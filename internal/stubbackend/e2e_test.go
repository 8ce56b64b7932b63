package stubbackend_test

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authModels "gatehouse/internal/auth/models"
	"gatehouse/internal/auth/session"
	sessionstore "gatehouse/internal/auth/store/session"
	"gatehouse/internal/backend"
	"gatehouse/internal/platform/config"
	"gatehouse/internal/stubbackend"
	dErrors "gatehouse/pkg/domain-errors"
)

func startStub(t *testing.T) (*backend.Client, *stubbackend.Server) {
	t.Helper()
	cfg := config.StubBackend{
		JWTSigningKey:  "e2e-key",
		TokenTTL:       time.Hour,
		ResetTokenTTL:  time.Minute,
		AdminEmail:     "admin@gatehouse.local",
		AdminPassword:  "adminpass1",
		PublicResetURL: "https://app.test/reset-password",
	}
	stub, err := stubbackend.Build(context.Background(), cfg, nil, prometheus.NewRegistry(), stubbackend.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	srv := httptest.NewServer(stub.Handler)
	t.Cleanup(srv.Close)

	client, err := backend.New(srv.URL, backend.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client, stub
}

func TestClientAgainstStub(t *testing.T) {
	ctx := context.Background()
	client, stub := startStub(t)

	t.Run("seeded admin signs in with the admin role", func(t *testing.T) {
		sess, err := client.Login(ctx, authModels.LocalCredential{Email: "admin@gatehouse.local", Password: "adminpass1"})
		require.NoError(t, err)
		assert.True(t, sess.IsAdmin())
	})

	t.Run("bad password is a backend rejection with the stub message", func(t *testing.T) {
		_, err := client.Login(ctx, authModels.LocalCredential{Email: "admin@gatehouse.local", Password: "wrongpass1"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBackendRejected))
		assert.Equal(t, stubbackend.MsgInvalidCredentials, dErrors.UserMessage(err))
	})

	t.Run("register, forget, reset, sign in again", func(t *testing.T) {
		sess, err := client.Register(ctx, authModels.Registration{Email: "ada@example.com", Password: "goodpass1", UserName: "ada"})
		require.NoError(t, err)
		require.True(t, sess.IsAuthenticated())

		msg, err := client.ForgotPassword(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, stubbackend.MsgResetLinkSent, msg)

		outbox := stub.Service.Outbox()
		require.Len(t, outbox, 1)
		link, err := url.Parse(outbox[0].Link)
		require.NoError(t, err)
		token := authModels.ResetTokenFromURL(link)
		require.True(t, token.Present())

		msg, err = client.ResetPassword(ctx, token, "newpass123", "newpass123")
		require.NoError(t, err)
		assert.Equal(t, stubbackend.MsgPasswordReset, msg)

		_, err = client.ResetPassword(ctx, token, "newpass456", "newpass456")
		assert.Equal(t, stubbackend.MsgResetLinkUsed, dErrors.UserMessage(err))

		_, err = client.Login(ctx, authModels.LocalCredential{Email: "ada@example.com", Password: "newpass123"})
		require.NoError(t, err)
	})

	t.Run("provider login with the dev verifier is stable per credential", func(t *testing.T) {
		a, err := client.ProviderLogin(ctx, authModels.ProviderGoogle, "opaque-1")
		require.NoError(t, err)
		b, err := client.ProviderLogin(ctx, authModels.ProviderGoogle, "opaque-1")
		require.NoError(t, err)
		assert.Equal(t, a.UserID, b.UserID)

		_, err = client.ProviderLogin(ctx, "myspace", "opaque-1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBackendRejected))
	})
}

func TestSessionStoreAgainstStub(t *testing.T) {
	ctx := context.Background()
	client, _ := startStub(t)
	store := session.New(client, sessionstore.NewInMemory())

	_, err := store.Login(ctx, authModels.AuthAttempt{
		Kind:  authModels.AttemptLocal,
		Local: &authModels.LocalCredential{Email: "admin@gatehouse.local", Password: "nope"},
	})
	require.Error(t, err)
	assert.Equal(t, authModels.StateAnonymous, store.State())

	sess, err := store.Login(ctx, authModels.AuthAttempt{
		Kind:  authModels.AttemptLocal,
		Local: &authModels.LocalCredential{Email: "admin@gatehouse.local", Password: "adminpass1"},
	})
	require.NoError(t, err)
	assert.Equal(t, authModels.StateAuthenticated, store.State())
	assert.Equal(t, sess, store.Current())
}
