package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gatehouse/internal/platform/config"
	"gatehouse/internal/stubbackend"
	dErrors "gatehouse/pkg/domain-errors"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{
		"login", "register", "login-google", "login-facebook", "logout",
		"whoami", "open", "forgot", "reset", "avatar", "cover",
	} {
		assert.Contains(t, output, sub, "help missing %q command", sub)
	}
}

// runner executes one CLI invocation per call against a shared stub backend
// and session file, the way separate processes would.
type runner struct {
	t    *testing.T
	stub *stubbackend.Server
}

func newRunner(t *testing.T) *runner {
	t.Helper()
	stub, err := stubbackend.Build(context.Background(), config.StubBackend{
		JWTSigningKey:  "cli-test-key",
		TokenTTL:       time.Hour,
		ResetTokenTTL:  time.Minute,
		AdminEmail:     "admin@gatehouse.local",
		AdminPassword:  "adminpass1",
		PublicResetURL: "https://app.test/reset-password",
	}, nil, prometheus.NewRegistry(), stubbackend.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	srv := httptest.NewServer(stub.Handler)
	t.Cleanup(srv.Close)

	t.Setenv("GATEHOUSE_BACKEND_URL", srv.URL)
	t.Setenv("GATEHOUSE_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("GATEHOUSE_RESET_REDIRECT_DELAY", "10ms")
	t.Setenv("GATEHOUSE_LOG_LEVEL", "error")
	return &runner{t: t, stub: stub}
}

func (r *runner) run(stdin string, args ...string) (string, error) {
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionCommands(t *testing.T) {
	r := newRunner(t)

	out, err := r.run("", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", out)

	out, err = r.run("adminpass1\n", "login", "--email", "admin@gatehouse.local")
	require.NoError(t, err)
	assert.Contains(t, out, "(ADMIN)")
	assert.Contains(t, out, "Now at /home")

	out, err = r.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ADMIN")
	assert.NotContains(t, out, "token")

	out, err = r.run("", "open", "/admin")
	require.NoError(t, err)
	assert.Contains(t, out, "/admin\tgate=admin\tdecision=RENDER")

	out, err = r.run("", "avatar", "https://cdn.test/a.png")
	require.NoError(t, err)
	assert.Equal(t, "Updated avatar\n", out)

	out, err = r.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "https://cdn.test/a.png")

	out, err = r.run("", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)

	out, err = r.run("", "open", "/home")
	require.NoError(t, err)
	assert.Contains(t, out, "/login\t")
}

func TestLoginPromptsForEmail(t *testing.T) {
	r := newRunner(t)

	_, err := r.run("admin@gatehouse.local\nwrongpass1\n", "login")
	require.Error(t, err)
	assert.Equal(t, stubbackend.MsgInvalidCredentials, dErrors.UserMessage(err))

	out, err := r.run("", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", out)
}

func TestRegisterAndProfileWhileAnonymous(t *testing.T) {
	r := newRunner(t)

	_, err := r.run("", "cover", "https://cdn.test/c.png")
	require.Error(t, err)

	out, err := r.run("goodpass1\n", "register", "--email", "new@example.com", "--first-name", "Ada", "--last-name", "Lovelace")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ada Lovelace (USER)")
}

func TestForgotAndReset(t *testing.T) {
	r := newRunner(t)

	out, err := r.run("", "forgot", "--email", "admin@gatehouse.local")
	require.NoError(t, err)
	assert.Equal(t, stubbackend.MsgResetLinkSent+"\n", out)

	outbox := r.stub.Service.Outbox()
	require.Len(t, outbox, 1)
	link := outbox[0].Link

	// A too-short password is refused locally; the second pair goes through.
	out, err = r.run("short\nshort\nnewpass12\nnewpass12\n", "reset", link)
	require.NoError(t, err)
	assert.Contains(t, out, stubbackend.MsgPasswordReset)
	assert.Contains(t, out, "/login\tgate=public\tdecision=RENDER")

	_, err = r.run("newpass12\nnewpass12\n", "reset", link)
	require.Error(t, err)
	assert.Equal(t, stubbackend.MsgResetLinkUsed, dErrors.UserMessage(err))

	out, err = r.run("newpass12\n", "login", "--email", "admin@gatehouse.local")
	require.NoError(t, err)
	assert.Contains(t, out, "(ADMIN)")
}

func TestResetWithoutToken(t *testing.T) {
	r := newRunner(t)

	out, err := r.run("", "reset", "https://app.test/reset-password")
	require.Error(t, err)
	assert.Contains(t, out, "/login\t")
}
