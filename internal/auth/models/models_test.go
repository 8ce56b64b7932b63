package models

import (
	"net/url"
	"testing"
	"time"

	dErrors "gatehouse/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAuthentication(t *testing.T) {
	t.Run("empty token is anonymous regardless of profile", func(t *testing.T) {
		s := Session{UserID: "u1", UserName: "ada", Role: RoleAdmin}
		assert.False(t, s.IsAuthenticated())
		assert.False(t, s.IsAdmin())
	})

	t.Run("token with admin role", func(t *testing.T) {
		s := Session{Token: "t", Role: RoleAdmin}
		assert.True(t, s.IsAuthenticated())
		assert.True(t, s.IsAdmin())
	})

	t.Run("display name fallbacks", func(t *testing.T) {
		assert.Equal(t, "Ada Lovelace", Session{FullName: "Ada Lovelace"}.DisplayName())
		assert.Equal(t, "Ada Byron", Session{FirstName: "Ada", LastName: "Byron"}.DisplayName())
		assert.Equal(t, "Ada", Session{FirstName: "Ada"}.DisplayName())
		assert.Equal(t, "ada", Session{UserName: "ada"}.DisplayName())
	})
}

func TestAuthAttemptValidate(t *testing.T) {
	t.Run("local attempt", func(t *testing.T) {
		a := AuthAttempt{Kind: AttemptLocal, Local: &LocalCredential{Email: "a@b.c", Password: "pw"}}
		require.NoError(t, a.Validate())
	})

	t.Run("both shapes populated is rejected", func(t *testing.T) {
		a := AuthAttempt{
			Kind:     AttemptLocal,
			Local:    &LocalCredential{Email: "a@b.c", Password: "pw"},
			Provider: &ProviderCredential{Provider: ProviderGoogle, Credential: "x"},
		}
		err := a.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedCredential))
	})

	t.Run("provider attempt without credential", func(t *testing.T) {
		a := AuthAttempt{Kind: AttemptProvider, Provider: &ProviderCredential{Provider: ProviderFacebook, IssuedAt: time.Now()}}
		assert.True(t, dErrors.HasCode(a.Validate(), dErrors.CodeMalformedCredential))
	})

	t.Run("unknown kind", func(t *testing.T) {
		assert.Error(t, AuthAttempt{}.Validate())
	})
}

func TestResetTokenFromURL(t *testing.T) {
	parse := func(raw string) *url.URL {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return u
	}

	assert.Equal(t, ResetToken("abc123"), ResetTokenFromURL(parse("https://app.test/reset?token=abc123")))
	assert.False(t, ResetTokenFromURL(parse("https://app.test/reset")).Present())
	assert.False(t, ResetTokenFromURL(parse("https://app.test/reset?token=")).Present())
	assert.False(t, ResetTokenFromURL(nil).Present())
}

func TestResetTokenPresent(t *testing.T) {
	assert.True(t, ResetToken("abc123").Present())
	assert.False(t, ResetToken("").Present())
	assert.False(t, ResetToken("   ").Present())
	assert.False(t, ResetToken("\t\n").Present())
}
