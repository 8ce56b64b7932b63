// Package signin drives the user-facing sign-in controls: one button per
// identity provider and the local email/password form. Both funnel into the
// session store and surface failures as renderable messages.
package signin

import (
	"context"

	"gatehouse/internal/auth/models"
)

// Sessions is the part of the session store the controls drive.
type Sessions interface {
	Login(ctx context.Context, attempt models.AuthAttempt) (models.Session, error)
	RegisterAccount(ctx context.Context, reg models.Registration) (models.Session, error)
	LoginWithCredential(ctx context.Context, attempt models.AuthAttempt) (models.Session, error)
}
