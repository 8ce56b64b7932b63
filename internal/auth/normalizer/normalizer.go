// Package normalizer converts provider-specific success payloads and local
// form input into the single AuthAttempt shape consumed by the session store.
// Nothing downstream of this package sees a provider payload.
package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gatehouse/internal/auth/models"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/email"
)

// IDTokenPayload is a silent-prompt result carrying a signed ID token.
type IDTokenPayload struct {
	Credential string
	SelectBy   string
	ClientID   string
}

// AccessTokenPayload is a popup token-client result.
type AccessTokenPayload struct {
	AccessToken string
	TokenType   string
	Scope       string
	ExpiresIn   int
}

// FacebookAuthResponse is the auth response of a Facebook-style login dialog.
type FacebookAuthResponse struct {
	Status      string
	AccessToken string
	UserID      string
	ExpiresIn   int
}

// LocalPayload is raw local form input.
type LocalPayload struct {
	Email    string
	Password string
}

// Local shapes a LOCAL attempt. The email is trimmed and lower-cased; the
// password is passed through untouched.
func Local(rawEmail, password string) (models.AuthAttempt, error) {
	normalized := email.Normalize(rawEmail)
	if normalized == "" || password == "" {
		return models.AuthAttempt{}, dErrors.New(dErrors.CodeMalformedCredential, "Email and password are required")
	}
	return models.AuthAttempt{
		Kind:  models.AttemptLocal,
		Local: &models.LocalCredential{Email: normalized, Password: password},
	}, nil
}

// Registration normalizes the profile fields of a sign-up form.
func Registration(reg models.Registration) (models.Registration, error) {
	reg.Email = email.Normalize(reg.Email)
	reg.UserName = strings.TrimSpace(reg.UserName)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	if reg.Email == "" || reg.Password == "" {
		return models.Registration{}, dErrors.New(dErrors.CodeMalformedCredential, "Email and password are required")
	}
	if !email.LooksValid(reg.Email) {
		return models.Registration{}, dErrors.New(dErrors.CodeMalformedCredential, "Enter a valid email address")
	}
	return reg, nil
}

// Provider shapes a PROVIDER attempt from a provider payload. The payload's
// token field must be present; a missing field is a MalformedCredential.
func Provider(provider models.ProviderName, raw any, issuedAt time.Time) (models.AuthAttempt, error) {
	if provider == "" {
		return models.AuthAttempt{}, dErrors.New(dErrors.CodeMalformedCredential, "provider name is required")
	}

	credential, err := tokenField(raw)
	if err != nil {
		return models.AuthAttempt{}, err
	}

	return models.AuthAttempt{
		Kind: models.AttemptProvider,
		Provider: &models.ProviderCredential{
			Provider:   provider,
			Credential: credential,
			IssuedAt:   issuedAt,
		},
	}, nil
}

// Normalize dispatches on the payload type: LocalPayload yields a LOCAL
// attempt, every provider payload a PROVIDER attempt for provider.
func Normalize(provider models.ProviderName, raw any, issuedAt time.Time) (models.AuthAttempt, error) {
	switch p := raw.(type) {
	case LocalPayload:
		return Local(p.Email, p.Password)
	case *LocalPayload:
		if p == nil {
			return models.AuthAttempt{}, malformed("local payload is nil")
		}
		return Local(p.Email, p.Password)
	default:
		return Provider(provider, raw, issuedAt)
	}
}

func tokenField(raw any) (string, error) {
	var token string
	switch p := raw.(type) {
	case IDTokenPayload:
		token = p.Credential
	case *IDTokenPayload:
		if p != nil {
			token = p.Credential
		}
	case AccessTokenPayload:
		token = p.AccessToken
	case *AccessTokenPayload:
		if p != nil {
			token = p.AccessToken
		}
	case FacebookAuthResponse:
		token = p.AccessToken
	case *FacebookAuthResponse:
		if p != nil {
			token = p.AccessToken
		}
	case nil:
		return "", malformed("no credential payload")
	default:
		return "", malformed(fmt.Sprintf("unsupported credential payload %T", raw))
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", malformed("credential token is missing")
	}
	return token, nil
}

func malformed(msg string) error {
	return dErrors.Wrap(errors.New(msg), dErrors.CodeMalformedCredential, "The provider returned an unusable credential")
}
