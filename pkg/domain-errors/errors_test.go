package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeBackendRejected, "wrong password")
		assert.True(t, HasCode(err, CodeBackendRejected))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches inner code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeScriptLoadFailed, "script failed")
		err := fmt.Errorf("ensure ready: %w", Wrap(inner, CodeProviderInitFailed, "init"))
		assert.True(t, HasCode(err, CodeProviderInitFailed))
		assert.True(t, HasCode(err, CodeScriptLoadFailed))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "x"))
	})

	t.Run("keeps cause for errors.Is", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := Wrap(cause, CodeNetworkOrUnknown, "backend unreachable")
		require.ErrorIs(t, err, cause)
		assert.Equal(t, "backend unreachable: dial tcp: refused", err.Error())
	})
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Email already taken", UserMessage(New(CodeBackendRejected, "Email already taken")))
	assert.Equal(t, GenericMessage, UserMessage(errors.New("eof")))
	assert.Equal(t, GenericMessage, UserMessage(New(CodeNetworkOrUnknown, "")))
	assert.Equal(t, CodeNetworkOrUnknown, CodeOf(errors.New("eof")))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeBadRequest))
	assert.Equal(t, http.StatusUnauthorized, ToHTTPStatus(CodeBackendRejected))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(CodeConflict))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(CodeInternal))
}
