// Package google bridges Google sign-in: a silent prompt that may return an
// ID token, with a token-client popup as the fallback.
package google

import (
	"context"
	"log/slog"
	"time"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/auth/normalizer"
	"gatehouse/internal/auth/provider"
	"gatehouse/internal/platform/logger"
	dErrors "gatehouse/pkg/domain-errors"
)

// DefaultScope is requested by the popup fallback.
const DefaultScope = "openid email profile"

// MomentKind classifies a silent prompt notification.
type MomentKind int

const (
	MomentDisplayed MomentKind = iota
	MomentNotDisplayed
	MomentSkipped
	MomentDismissed
)

// ReasonCredentialReturned marks a dismissal caused by a successful selection.
const ReasonCredentialReturned = "credential_returned"

// Moment is a silent prompt notification.
type Moment struct {
	Kind   MomentKind
	Reason string
}

func (m Moment) needsPopup() bool {
	switch m.Kind {
	case MomentNotDisplayed, MomentSkipped:
		return true
	case MomentDismissed:
		return m.Reason != ReasonCredentialReturned
	default:
		return false
	}
}

// TokenResponse is what the popup token client reports.
type TokenResponse struct {
	normalizer.AccessTokenPayload
	Error            string
	ErrorDescription string
}

// SDK is the Google client library surface the bridge drives.
type SDK interface {
	Initialize(clientID string, onCredential func(normalizer.IDTokenPayload)) error
	Prompt(ctx context.Context, onMoment func(Moment))
	RequestAccessToken(ctx context.Context, scope string, onToken func(TokenResponse))
}

// Config holds the pre-supplied client identifier.
type Config struct {
	ClientID string
	Scope    string
}

// Bridge implements provider.Bridge for Google.
type Bridge struct {
	cfg      Config
	handle   *provider.Handle
	sdk      SDK
	dispatch provider.Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Bridge.
type Option func(*Bridge)

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger.OrDiscard(l) }
}

// WithClock sets the issue-time source for normalized attempts.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

func New(cfg Config, handle *provider.Handle, sdk SDK, opts ...Option) *Bridge {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	b := &Bridge{
		cfg:    cfg,
		handle: handle,
		sdk:    sdk,
		logger: logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Bridge) Name() models.ProviderName { return models.ProviderGoogle }

func (b *Bridge) State() provider.HandleState { return b.handle.State() }

func (b *Bridge) EnsureReady(ctx context.Context) error {
	return b.handle.EnsureReady(ctx)
}

func (b *Bridge) Initialize(cb provider.Callbacks) error {
	b.dispatch.Set(cb)
	return b.init()
}

func (b *Bridge) init() error {
	if b.cfg.ClientID == "" {
		return dErrors.New(dErrors.CodeProviderInitFailed, "Google sign-in is not configured")
	}
	return b.handle.Initialize(func() error {
		return b.sdk.Initialize(b.cfg.ClientID, b.onCredential)
	})
}

func (b *Bridge) Close() { b.dispatch.Close() }

// RequestCredential tries the silent prompt and falls back to the popup when
// the prompt cannot produce a credential.
func (b *Bridge) RequestCredential(ctx context.Context) {
	go b.request(ctx)
}

func (b *Bridge) request(ctx context.Context) {
	if err := b.EnsureReady(ctx); err != nil {
		b.fail(ctx, err)
		return
	}
	if err := b.init(); err != nil {
		b.fail(ctx, err)
		return
	}

	b.sdk.Prompt(ctx, func(m Moment) {
		if !m.needsPopup() {
			return
		}
		b.logger.DebugContext(ctx, "silent prompt unavailable; opening popup", "reason", m.Reason)
		b.sdk.RequestAccessToken(ctx, b.cfg.Scope, func(resp TokenResponse) {
			b.onToken(ctx, resp)
		})
	})
}

func (b *Bridge) onCredential(p normalizer.IDTokenPayload) {
	attempt, err := normalizer.Provider(models.ProviderGoogle, p, b.now())
	if err != nil {
		b.fail(context.Background(), err)
		return
	}
	b.emit(attempt)
}

func (b *Bridge) onToken(ctx context.Context, resp TokenResponse) {
	if resp.Error != "" {
		msg := "Google sign-in was cancelled"
		if resp.ErrorDescription != "" {
			msg = resp.ErrorDescription
		}
		b.fail(ctx, dErrors.New(dErrors.CodeNoCredentialReceived, msg))
		return
	}
	if resp.AccessToken == "" {
		b.fail(ctx, dErrors.New(dErrors.CodeNoCredentialReceived, "No credential was received from Google"))
		return
	}
	attempt, err := normalizer.Provider(models.ProviderGoogle, resp.AccessTokenPayload, b.now())
	if err != nil {
		b.fail(ctx, err)
		return
	}
	b.emit(attempt)
}

func (b *Bridge) emit(attempt models.AuthAttempt) {
	if !b.dispatch.Emit(attempt) {
		b.logger.Debug("dropping google credential with no listener")
	}
}

func (b *Bridge) fail(ctx context.Context, err error) {
	b.logger.InfoContext(ctx, "google credential request failed", "code", string(dErrors.CodeOf(err)))
	b.dispatch.Fail(err)
}
