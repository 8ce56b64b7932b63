package models

import (
	"time"

	dErrors "gatehouse/pkg/domain-errors"
)

// AttemptKind distinguishes local credentials from provider-issued ones.
type AttemptKind string

const (
	AttemptLocal    AttemptKind = "LOCAL"
	AttemptProvider AttemptKind = "PROVIDER"
)

// ProviderName identifies a third-party identity provider.
type ProviderName string

const (
	ProviderGoogle   ProviderName = "google"
	ProviderFacebook ProviderName = "facebook"
)

func (p ProviderName) String() string {
	return string(p)
}

// LocalCredential is an email/password pair.
type LocalCredential struct {
	Email    string
	Password string
}

// ProviderCredential is an opaque token issued by a provider. It is never
// parsed client-side.
type ProviderCredential struct {
	Provider   ProviderName
	Credential string
	IssuedAt   time.Time
}

// AuthAttempt is the normalized input to the session store. Exactly one of
// Local or Provider is set, matching Kind.
type AuthAttempt struct {
	Kind     AttemptKind
	Local    *LocalCredential
	Provider *ProviderCredential
}

// Validate enforces the single-shape invariant.
func (a AuthAttempt) Validate() error {
	switch a.Kind {
	case AttemptLocal:
		if a.Local == nil || a.Provider != nil {
			return dErrors.New(dErrors.CodeMalformedCredential, "local attempt must carry only email and password")
		}
		if a.Local.Email == "" || a.Local.Password == "" {
			return dErrors.New(dErrors.CodeMalformedCredential, "Email and password are required")
		}
	case AttemptProvider:
		if a.Provider == nil || a.Local != nil {
			return dErrors.New(dErrors.CodeMalformedCredential, "provider attempt must carry only a provider credential")
		}
		if a.Provider.Provider == "" || a.Provider.Credential == "" {
			return dErrors.New(dErrors.CodeMalformedCredential, "No credential was received from the provider")
		}
	default:
		return dErrors.New(dErrors.CodeMalformedCredential, "unknown attempt kind")
	}
	return nil
}
