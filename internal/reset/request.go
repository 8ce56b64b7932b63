package reset

import (
	"context"

	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/email"
)

// MsgLinkSent is shown when the backend confirms without a message.
const MsgLinkSent = "If an account exists for that email, a reset link is on its way."

// LinkRequester asks the backend to send a reset link.
type LinkRequester interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
}

// RequestLink sends a reset link to address and returns the message to show.
func RequestLink(ctx context.Context, backend LinkRequester, address string) (string, error) {
	normalized := email.Normalize(address)
	if normalized == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "Enter your email address")
	}
	if !email.LooksValid(normalized) {
		return "", dErrors.New(dErrors.CodeBadRequest, "Enter a valid email address")
	}
	msg, err := backend.ForgotPassword(ctx, normalized)
	if err != nil {
		return "", err
	}
	if msg == "" {
		msg = MsgLinkSent
	}
	return msg, nil
}
