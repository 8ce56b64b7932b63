package models

import (
	"errors"
	"time"

	"github.com/google/uuid"

	authModels "gatehouse/internal/auth/models"
)

// User is an account known to the stub backend. Provider accounts carry no
// password hash and cannot log in locally.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash []byte
	UserName     string
	FirstName    string
	LastName     string
	Role         authModels.Role
	AvatarURL    string
	CoverURL     string
	// Identities maps provider name to the provider's subject for this user.
	Identities map[authModels.ProviderName]string
	CreatedAt  time.Time
}

// HasPassword reports whether the user can log in with a password.
func (u *User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

// Session projects the user into the session shape returned to clients.
func (u *User) Session(token string) authModels.Session {
	full := u.FirstName
	if u.LastName != "" {
		if full != "" {
			full += " "
		}
		full += u.LastName
	}
	return authModels.Session{
		Token:     token,
		UserID:    u.ID.String(),
		UserName:  u.UserName,
		FullName:  full,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
		CoverURL:  u.CoverURL,
		Role:      u.Role,
	}
}

var (
	errResetTokenExpired = errors.New("reset token expired")
	errResetTokenUsed    = errors.New("reset token already used")
)

// ResetTokenRecord authorizes one password change for UserID.
type ResetTokenRecord struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// ValidateForConsume checks that the record is unused and not expired at now.
func (r *ResetTokenRecord) ValidateForConsume(now time.Time) error {
	if r.Used {
		return errResetTokenUsed
	}
	if !now.Before(r.ExpiresAt) {
		return errResetTokenExpired
	}
	return nil
}

// MarkUsed consumes the record.
func (r *ResetTokenRecord) MarkUsed() {
	r.Used = true
}

// OutboxMessage is a reset link the stub "sent". Nothing leaves the process;
// operators read the outbox through the admin endpoint.
type OutboxMessage struct {
	To     string    `json:"to"`
	Link   string    `json:"link"`
	SentAt time.Time `json:"sentAt"`
}
