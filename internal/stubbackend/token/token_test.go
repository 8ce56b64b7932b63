package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authModels "gatehouse/internal/auth/models"
	dErrors "gatehouse/pkg/domain-errors"
)

var userID = uuid.New()

func Test_Issue(t *testing.T) {
	svc := NewService("test-signing-key", "test-issuer", time.Hour)

	signed, err := svc.Issue(userID, authModels.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, authModels.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_Validate_InvalidToken(t *testing.T) {
	svc := NewService("test-signing-key", "test-issuer", time.Hour)
	_, err := svc.Validate("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "invalid token", dErrors.UserMessage(err))
}

func Test_Validate_ExpiredToken(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	issuer := NewService("test-signing-key", "test-issuer", time.Hour, WithClock(func() time.Time { return issuedAt }))
	signed, err := issuer.Issue(userID, authModels.RoleUser)
	require.NoError(t, err)

	_, err = NewService("test-signing-key", "test-issuer", time.Hour).Validate(signed)
	require.Error(t, err)
	assert.Equal(t, "token has expired", dErrors.UserMessage(err))
}

func Test_Validate_WrongKeyOrIssuer(t *testing.T) {
	signed, err := NewService("key-a", "test-issuer", time.Hour).Issue(userID, authModels.RoleUser)
	require.NoError(t, err)

	_, err = NewService("key-b", "test-issuer", time.Hour).Validate(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = NewService("key-a", "other-issuer", time.Hour).Validate(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Adapter(t *testing.T) {
	svc := NewService("test-signing-key", "test-issuer", time.Hour)
	signed, err := svc.Issue(userID, authModels.RoleUser)
	require.NoError(t, err)

	claims, err := NewAdapter(svc).ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "USER", claims.Role)
	assert.NotEmpty(t, claims.JTI)
}
