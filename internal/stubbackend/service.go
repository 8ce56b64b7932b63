// Package stubbackend is a development stand-in for the credential verifier
// and token issuer. It keeps everything in memory and "sends" reset links to
// an outbox instead of a mail server.
package stubbackend

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authModels "gatehouse/internal/auth/models"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/stubbackend/models"
	"gatehouse/internal/stubbackend/verify"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/email"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 15
)

// User-facing messages.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailTaken         = "An account with this email already exists"
	MsgResetLinkSent      = "If an account exists for that email, a reset link is on its way."
	MsgPasswordReset      = "Your password has been reset. You can now sign in."
	MsgResetLinkInvalid   = "This reset link is not valid. Request a new one."
	MsgResetLinkExpired   = "This reset link has expired. Request a new one."
	MsgResetLinkUsed      = "This reset link has already been used. Request a new one."
	MsgProviderRejected   = "The provider sign-in could not be verified"
)

type UserStore interface {
	Save(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIdentity(ctx context.Context, provider authModels.ProviderName, subject string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*models.User)) error
}

type ResetTokenStore interface {
	Create(ctx context.Context, record *models.ResetTokenRecord) error
	Consume(ctx context.Context, token string, now time.Time) (*models.ResetTokenRecord, error)
}

type TokenIssuer interface {
	Issue(userID uuid.UUID, role authModels.Role) (string, error)
}

// Service implements the backend endpoints.
type Service struct {
	users     UserStore
	resets    ResetTokenStore
	tokens    TokenIssuer
	verifiers map[authModels.ProviderName]verify.Verifier
	logger    *slog.Logger

	resetTTL       time.Duration
	publicResetURL string
	bcryptCost     int

	outboxMu sync.Mutex
	outbox   []models.OutboxMessage
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logger.OrDiscard(l) }
}

// WithVerifier registers the credential verifier for provider.
func WithVerifier(provider authModels.ProviderName, v verify.Verifier) Option {
	return func(s *Service) { s.verifiers[provider] = v }
}

func WithResetTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resetTTL = d
		}
	}
}

// WithPublicResetURL sets the page reset links point at.
func WithPublicResetURL(u string) Option {
	return func(s *Service) { s.publicResetURL = u }
}

// WithBcryptCost lowers the hashing cost in tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func New(users UserStore, resets ResetTokenStore, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:          users,
		resets:         resets,
		tokens:         tokens,
		verifiers:      make(map[authModels.ProviderName]verify.Verifier),
		logger:         logger.Discard(),
		resetTTL:       30 * time.Minute,
		publicResetURL: "http://localhost:3000/reset-password",
		bcryptCost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedAdmin creates the admin account unless the email is already taken.
func (s *Service) SeedAdmin(ctx context.Context, address, password string) error {
	address = email.Normalize(address)
	if address == "" || password == "" {
		return nil
	}
	if _, err := s.users.FindByEmail(ctx, address); err == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	admin := &models.User{
		ID:           uuid.New(),
		Email:        address,
		PasswordHash: hash,
		UserName:     "admin",
		FirstName:    "Admin",
		Role:         authModels.RoleAdmin,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Save(ctx, admin); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed admin")
	}
	s.logger.InfoContext(ctx, "seeded admin account", "user_id", admin.ID.String())
	return nil
}

// Login verifies an email and password and issues a session.
func (s *Service) Login(ctx context.Context, address, password string) (authModels.Session, error) {
	address = email.Normalize(address)
	if address == "" || password == "" {
		return authModels.Session{}, dErrors.New(dErrors.CodeBadRequest, "Email and password are required")
	}

	u, err := s.users.FindByEmail(ctx, address)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return authModels.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
		}
		return authModels.Session{}, dErrors.New(dErrors.CodeBackendRejected, MsgInvalidCredentials)
	}
	if !u.HasPassword() || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		s.logger.InfoContext(ctx, "login rejected", "user_id", u.ID.String(), "client_ip", requestcontext.ClientIP(ctx))
		return authModels.Session{}, dErrors.New(dErrors.CodeBackendRejected, MsgInvalidCredentials)
	}
	return s.issue(ctx, u)
}

// Register creates a local account and signs it in.
func (s *Service) Register(ctx context.Context, reg authModels.Registration) (authModels.Session, error) {
	reg.Email = email.Normalize(reg.Email)
	if !email.LooksValid(reg.Email) {
		return authModels.Session{}, dErrors.New(dErrors.CodeBadRequest, "Enter a valid email address")
	}
	if err := validatePassword(reg.Password); err != nil {
		return authModels.Session{}, err
	}

	first, last := reg.FirstName, reg.LastName
	if first == "" && last == "" {
		first, last = email.DeriveNameFromEmail(reg.Email)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return authModels.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	u := &models.User{
		ID:           uuid.New(),
		Email:        reg.Email,
		PasswordHash: hash,
		UserName:     reg.UserName,
		FirstName:    first,
		LastName:     last,
		Role:         authModels.RoleUser,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return authModels.Session{}, dErrors.New(dErrors.CodeConflict, MsgEmailTaken)
		}
		return authModels.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}
	s.logger.InfoContext(ctx, "account registered", "user_id", u.ID.String())
	return s.issue(ctx, u)
}

// ProviderLogin verifies a provider credential and signs in the linked user,
// creating one on first sight.
func (s *Service) ProviderLogin(ctx context.Context, provider authModels.ProviderName, credential string) (authModels.Session, error) {
	v, ok := s.verifiers[provider]
	if !ok {
		return authModels.Session{}, dErrors.New(dErrors.CodeBadRequest, "Unsupported sign-in provider")
	}
	if credential == "" {
		return authModels.Session{}, dErrors.New(dErrors.CodeBadRequest, "No credential was received from the provider")
	}

	identity, err := v.Verify(ctx, credential)
	if err != nil || identity.Subject == "" {
		s.logger.InfoContext(ctx, "provider credential rejected", "provider", provider.String(), "error", err)
		return authModels.Session{}, dErrors.New(dErrors.CodeBackendRejected, MsgProviderRejected)
	}

	u, err := s.users.FindByIdentity(ctx, provider, identity.Subject)
	if err == nil {
		return s.issue(ctx, u)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return authModels.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}

	u = &models.User{
		ID:         uuid.New(),
		Email:      email.Normalize(identity.Email),
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Role:       authModels.RoleUser,
		Identities: map[authModels.ProviderName]string{provider: identity.Subject},
		CreatedAt:  requestcontext.Now(ctx),
	}
	if u.FirstName == "" && u.LastName == "" && u.Email != "" {
		u.FirstName, u.LastName = email.DeriveNameFromEmail(u.Email)
	}
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return authModels.Session{}, dErrors.New(dErrors.CodeConflict, MsgEmailTaken)
		}
		return authModels.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}
	s.logger.InfoContext(ctx, "provider account created", "provider", provider.String(), "user_id", u.ID.String())
	return s.issue(ctx, u)
}

// ForgotPassword issues a reset token when the account exists. The answer
// is the same either way so the endpoint does not reveal which emails exist.
func (s *Service) ForgotPassword(ctx context.Context, address string) (string, error) {
	address = email.Normalize(address)
	if !email.LooksValid(address) {
		return "", dErrors.New(dErrors.CodeBadRequest, "Enter a valid email address")
	}

	u, err := s.users.FindByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return MsgResetLinkSent, nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}

	now := requestcontext.Now(ctx)
	record := &models.ResetTokenRecord{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, record); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}

	link, err := s.resetLink(record.Token)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}
	s.outboxMu.Lock()
	s.outbox = append(s.outbox, models.OutboxMessage{To: address, Link: link, SentAt: now})
	s.outboxMu.Unlock()
	s.logger.InfoContext(ctx, "reset link issued", "user_id", u.ID.String())
	return MsgResetLinkSent, nil
}

// ResetPassword consumes token and sets a new password. Passwords are
// validated before the token is touched so a typo does not burn the link.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword, confirm string) (string, error) {
	if token == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, MsgResetLinkInvalid)
	}
	if err := validatePassword(newPassword); err != nil {
		return "", err
	}
	if newPassword != confirm {
		return "", dErrors.New(dErrors.CodeBadRequest, "Passwords do not match")
	}

	record, err := s.resets.Consume(ctx, token, requestcontext.Now(ctx))
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return "", dErrors.New(dErrors.CodeBackendRejected, MsgResetLinkInvalid)
	case errors.Is(err, sentinel.ErrExpired):
		return "", dErrors.New(dErrors.CodeBackendRejected, MsgResetLinkExpired)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return "", dErrors.New(dErrors.CodeBackendRejected, MsgResetLinkUsed)
	case err != nil:
		return "", dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	if err := s.users.Update(ctx, record.UserID, func(u *models.User) { u.PasswordHash = hash }); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}
	s.logger.InfoContext(ctx, "password reset", "user_id", record.UserID.String())
	return MsgPasswordReset, nil
}

// Profile returns the session projection of userID without a token.
func (s *Service) Profile(ctx context.Context, userID string) (authModels.Session, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return authModels.Session{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return authModels.Session{}, dErrors.New(dErrors.CodeNotFound, "account no longer exists")
		}
		return authModels.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}
	return u.Session(""), nil
}

// Outbox returns the reset links sent so far, oldest first.
func (s *Service) Outbox() []models.OutboxMessage {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()
	return append([]models.OutboxMessage(nil), s.outbox...)
}

func (s *Service) issue(ctx context.Context, u *models.User) (authModels.Session, error) {
	signed, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue token", "error", err)
		return authModels.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}
	return u.Session(signed), nil
}

func (s *Service) resetLink(token string) (string, error) {
	u, err := url.Parse(s.publicResetURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(authModels.ResetTokenParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func validatePassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLength || n > maxPasswordLength {
		return dErrors.New(dErrors.CodeBadRequest, "Password must be 8 to 15 characters")
	}
	return nil
}
