// Package session holds the process-wide session state machine.
//
//	ANONYMOUS --login/register/loginWithCredential--> AUTHENTICATING
//	AUTHENTICATING --backend accepts--> AUTHENTICATED (persisted)
//	AUTHENTICATING --backend declines / transport fails--> previous state
//	AUTHENTICATED --logout--> ANONYMOUS (persisted copy cleared)
//
// There is no failed state: a failed attempt reports its error to the caller
// and leaves the store where it was before the attempt.
//
// Concurrency: state is guarded by a mutex, but attempts are not serialized.
// Two overlapping attempts both reach the backend and whichever completes last
// sets the final state. Callers drive the store from single user gestures.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/platform/metrics"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
)

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Backend,Persister

// Backend is the credential verifier and token issuer.
type Backend interface {
	Login(ctx context.Context, cred models.LocalCredential) (models.Session, error)
	Register(ctx context.Context, reg models.Registration) (models.Session, error)
	ProviderLogin(ctx context.Context, provider models.ProviderName, credential string) (models.Session, error)
}

// Persister keeps a copy of the session across restarts. Load returns
// sentinel.ErrNotFound when nothing is stored.
type Persister interface {
	Load(ctx context.Context) (models.Session, error)
	Save(ctx context.Context, session models.Session) error
	Clear(ctx context.Context) error
}

// Listener observes every state change.
type Listener = func(session models.Session, state models.State)

// Store owns the session. Construct one per process and share it.
type Store struct {
	backend   Backend
	persister Persister
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu      sync.RWMutex
	state   models.State
	session models.Session

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.OrDiscard(l)
	}
}

// WithMetrics records attempt outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New constructs an anonymous store. Call Restore to pick up a persisted session.
func New(backend Backend, persister Persister, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		persister: persister,
		logger:    logger.Discard(),
		state:     models.StateAnonymous,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Restore loads the persisted session and moves straight to AUTHENTICATED when
// it carries a token. The token is not revalidated; an expired token surfaces
// later when a protected backend call fails.
func (s *Store) Restore(ctx context.Context) models.State {
	persisted, err := s.persister.Load(ctx)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to restore persisted session", "error", err)
		}
		return s.State()
	}
	if !persisted.IsAuthenticated() {
		s.logger.DebugContext(ctx, "persisted session has no token; staying anonymous")
		return s.State()
	}

	s.set(persisted, models.StateAuthenticated)
	s.logger.InfoContext(ctx, "session restored", "user_id", persisted.UserID)
	return models.StateAuthenticated
}

// Current returns a copy of the session. An anonymous store returns the zero Session.
func (s *Store) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// State returns the lifecycle position.
func (s *Store) State() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns session and state read together.
func (s *Store) Snapshot() (models.Session, models.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.state
}

// Subscribe registers fn for every state change and returns its cancel func.
// Listeners run synchronously after the change and must not block.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// Login verifies a LOCAL attempt with the backend.
func (s *Store) Login(ctx context.Context, attempt models.AuthAttempt) (models.Session, error) {
	if err := attempt.Validate(); err != nil {
		return models.Session{}, err
	}
	if attempt.Kind != models.AttemptLocal {
		return models.Session{}, dErrors.New(dErrors.CodeMalformedCredential, "login expects an email and password")
	}
	return s.authenticate(ctx, string(models.AttemptLocal), func(ctx context.Context) (models.Session, error) {
		return s.backend.Login(ctx, *attempt.Local)
	})
}

// RegisterAccount creates an account; on success the new account is already
// authenticated.
func (s *Store) RegisterAccount(ctx context.Context, reg models.Registration) (models.Session, error) {
	if reg.Email == "" || reg.Password == "" {
		return models.Session{}, dErrors.New(dErrors.CodeMalformedCredential, "Email and password are required")
	}
	return s.authenticate(ctx, "REGISTER", func(ctx context.Context) (models.Session, error) {
		return s.backend.Register(ctx, reg)
	})
}

// LoginWithCredential hands a provider-issued credential to the backend, the
// sole verifier of third-party tokens.
func (s *Store) LoginWithCredential(ctx context.Context, attempt models.AuthAttempt) (models.Session, error) {
	if err := attempt.Validate(); err != nil {
		return models.Session{}, err
	}
	if attempt.Kind != models.AttemptProvider {
		return models.Session{}, dErrors.New(dErrors.CodeMalformedCredential, "provider login expects a provider credential")
	}
	cred := *attempt.Provider
	return s.authenticate(ctx, string(models.AttemptProvider), func(ctx context.Context) (models.Session, error) {
		return s.backend.ProviderLogin(ctx, cred.Provider, cred.Credential)
	})
}

// Logout clears the session and its persisted copy. It always succeeds and is
// safe to call while anonymous.
func (s *Store) Logout(ctx context.Context) {
	if err := s.persister.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear persisted session", "error", err)
	}
	s.set(models.Session{}, models.StateAnonymous)
}

// UpdateAvatar changes the avatar of the authenticated session in place.
func (s *Store) UpdateAvatar(ctx context.Context, url string) error {
	return s.mutateProfile(ctx, func(sess *models.Session) { sess.AvatarURL = url })
}

// UpdateCover changes the cover image of the authenticated session in place.
func (s *Store) UpdateCover(ctx context.Context, url string) error {
	return s.mutateProfile(ctx, func(sess *models.Session) { sess.CoverURL = url })
}

func (s *Store) mutateProfile(ctx context.Context, mutate func(*models.Session)) error {
	s.mu.Lock()
	if s.state != models.StateAuthenticated || !s.session.IsAuthenticated() {
		s.mu.Unlock()
		return dErrors.New(dErrors.CodeInvalidState, "You need to be signed in to change your profile")
	}
	updated := s.session
	mutate(&updated)
	// Profile edits never touch identity.
	updated.Token = s.session.Token
	updated.Role = s.session.Role
	s.session = updated
	s.mu.Unlock()

	if err := s.persister.Save(ctx, updated); err != nil {
		s.logger.WarnContext(ctx, "failed to persist profile update", "error", err)
	}
	s.notify(updated, models.StateAuthenticated)
	return nil
}

func (s *Store) authenticate(
	ctx context.Context,
	kind string,
	call func(ctx context.Context) (models.Session, error),
) (models.Session, error) {
	prevSession, prevState := s.Snapshot()
	if prevState == models.StateAuthenticating {
		// Another attempt is still out; it will settle on its own.
		prevState = models.StateAnonymous
		prevSession = models.Session{}
	}
	s.set(prevSession, models.StateAuthenticating)

	sess, err := call(ctx)
	if err == nil && !sess.IsAuthenticated() {
		err = dErrors.New(dErrors.CodeBackendRejected, "Sign-in did not return a session")
	}
	if err != nil {
		s.set(prevSession, prevState)
		s.metrics.ObserveAuthAttempt(kind, "failure")
		s.logger.InfoContext(ctx, "authentication attempt failed",
			"kind", kind,
			"code", string(dErrors.CodeOf(err)),
		)
		return models.Session{}, asUserFacing(err)
	}

	if sess.Role == "" {
		sess.Role = models.RoleUser
	}
	if perr := s.persister.Save(ctx, sess); perr != nil {
		s.logger.WarnContext(ctx, "failed to persist session; it will not survive a restart", "error", perr)
	}
	s.set(sess, models.StateAuthenticated)
	s.metrics.ObserveAuthAttempt(kind, "success")
	s.logger.InfoContext(ctx, "authenticated", "kind", kind, "user_id", sess.UserID)
	return sess, nil
}

// asUserFacing guarantees the error carries a code and a renderable message.
func asUserFacing(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Message != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeNetworkOrUnknown, "The request timed out. Please try again.")
	}
	return dErrors.Wrap(err, dErrors.CodeNetworkOrUnknown, dErrors.GenericMessage)
}

func (s *Store) set(sess models.Session, state models.State) {
	s.mu.Lock()
	s.session = sess
	s.state = state
	s.mu.Unlock()
	s.notify(sess, state)
}

func (s *Store) notify(sess models.Session, state models.State) {
	s.listenersMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(sess, state)
	}
}
