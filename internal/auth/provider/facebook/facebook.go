// Package facebook bridges Facebook Login. The login dialog reports a status;
// only "connected" carries a usable access token.
package facebook

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

const (
	DefaultScope = "public_profile,email"

	StatusConnected     = "connected"
	StatusNotAuthorized = "not_authorized"
	StatusUnknown       = "unknown"
)

// LoginStatus is the login dialog result.
type LoginStatus struct {
	Status       string
	AuthResponse *normalizer.FacebookAuthResponse
}

// SDK is the Facebook client library surface the bridge drives.
type SDK interface {
	Init(appID string) error
	Login(ctx context.Context, scope string, cb func(LoginStatus))
}

type Config struct {
	AppID string
	Scope string
}

// Bridge implements provider.Bridge for Facebook.
type Bridge struct {
	cfg      Config
	handle   *provider.Handle
	sdk      SDK
	dispatch provider.Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Bridge)

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger.OrDiscard(l) }
}

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

func (b *Bridge) Name() models.ProviderName   { return models.ProviderFacebook }
func (b *Bridge) State() provider.HandleState { return b.handle.State() }
func (b *Bridge) Close()                      { b.dispatch.Close() }

func (b *Bridge) EnsureReady(ctx context.Context) error {
	return b.handle.EnsureReady(ctx)
}

func (b *Bridge) Initialize(cb provider.Callbacks) error {
	b.dispatch.Set(cb)
	return b.init()
}

func (b *Bridge) init() error {
	if b.cfg.AppID == "" {
		return dErrors.New(dErrors.CodeProviderInitFailed, "Facebook sign-in is not configured")
	}
	return b.handle.Initialize(func() error {
		return b.sdk.Init(b.cfg.AppID)
	})
}

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
	b.sdk.Login(ctx, b.cfg.Scope, func(st LoginStatus) {
		b.onStatus(ctx, st)
	})
}

func (b *Bridge) onStatus(ctx context.Context, st LoginStatus) {
	if st.Status != StatusConnected || st.AuthResponse == nil {
		b.fail(ctx, dErrors.New(dErrors.CodeNoCredentialReceived, "Facebook sign-in was cancelled"))
		return
	}
	attempt, err := normalizer.Provider(models.ProviderFacebook, st.AuthResponse, b.now())
	if err != nil {
		b.fail(ctx, err)
		return
	}
	if !b.dispatch.Emit(attempt) {
		b.logger.DebugContext(ctx, "dropping facebook credential with no listener")
	}
}

func (b *Bridge) fail(ctx context.Context, err error) {
	b.logger.InfoContext(ctx, "facebook credential request failed", "code", string(dErrors.CodeOf(err)))
	b.dispatch.Fail(err)
}
