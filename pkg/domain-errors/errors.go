// Package domainerrors carries the error taxonomy shared by the provider bridges,
// the session store, the reset flow and the stub backend.
//
// Errors are values with a Code and a short human-readable Message. The Message
// is safe to show next to the control that triggered the failure; wrapped causes
// are kept for logs only.
//
//	return dErrors.New(dErrors.CodeMalformedCredential, "credential missing")
//	return dErrors.Wrap(err, dErrors.CodeNetworkOrUnknown, "backend unreachable")
//	if dErrors.HasCode(err, dErrors.CodeBackendRejected) { ... }
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies an error.
type Code string

const (
	// Provider bridge and normalizer failures.
	CodeScriptLoadFailed     Code = "script_load_failed"
	CodeProviderInitFailed   Code = "provider_init_failed"
	CodeNoCredentialReceived Code = "no_credential_received"
	CodeMalformedCredential  Code = "malformed_credential"

	// Session and reset failures.
	CodeBackendRejected  Code = "backend_rejected"
	CodeNetworkOrUnknown Code = "network_or_unknown"
	CodeInvalidState     Code = "invalid_state"

	// Generic codes used at the HTTP edge.
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
)

// GenericMessage is shown when no better message is available.
const GenericMessage = "Something went wrong. Please try again."

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeNetworkOrUnknown
// for errors that carry no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeNetworkOrUnknown
}

// UserMessage returns the message to render near the triggering control.
// It is never empty for a non-nil error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return GenericMessage
}

// ToHTTPStatus maps a code to the status used by HTTP handlers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeMalformedCredential:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeBackendRejected:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
