package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Persisters, the stub backend's
// in-memory stores and the provider loaders return these (optionally wrapped)
// so the session store and handlers can translate them into domain errors.
//
//   - ErrNotFound: nothing persisted, or no such user / reset token
//   - ErrConflict: record already exists (duplicate email on registration)
//   - ErrExpired: reset token or persisted session past its expiry
//   - ErrAlreadyUsed: reset token already consumed
//   - ErrUnavailable: provider resource or backend temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
