package signin

import (
	"context"
	"log/slog"
	"sync"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/auth/provider"
	"gatehouse/internal/platform/logger"
	dErrors "gatehouse/pkg/domain-errors"
)

// Button is a provider sign-in control. At most one credential request is
// outstanding per button; clicks while one is pending are ignored.
type Button struct {
	bridge   provider.Bridge
	sessions Sessions
	logger   *slog.Logger

	onSignedIn func(models.Session)
	onError    func(message string, err error)

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	mounted  bool
	inFlight bool
}

type ButtonOption func(*Button)

// OnSignedIn is called after the session store accepts the credential.
func OnSignedIn(fn func(models.Session)) ButtonOption {
	return func(b *Button) { b.onSignedIn = fn }
}

// OnError receives a message fit for display alongside the raw error.
func OnError(fn func(message string, err error)) ButtonOption {
	return func(b *Button) { b.onError = fn }
}

func WithButtonLogger(l *slog.Logger) ButtonOption {
	return func(b *Button) { b.logger = logger.OrDiscard(l) }
}

func NewButton(bridge provider.Bridge, sessions Sessions, opts ...ButtonOption) *Button {
	b := &Button{
		bridge:   bridge,
		sessions: sessions,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Provider names the bridge behind the button.
func (b *Button) Provider() models.ProviderName {
	return b.bridge.Name()
}

// Mount loads and initializes the provider. A failure leaves the button
// unmounted; calling Mount again retries.
func (b *Button) Mount(ctx context.Context) error {
	if err := b.bridge.EnsureReady(ctx); err != nil {
		return err
	}
	if err := b.bridge.Initialize(provider.Callbacks{
		OnAttempt: b.handleAttempt,
		OnError:   b.handleFailure,
	}); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted {
		b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
		b.mounted = true
	}
	return nil
}

// Click starts a credential request. It reports false when the button is not
// mounted or a request is already pending.
func (b *Button) Click() bool {
	b.mu.Lock()
	if !b.mounted || b.inFlight {
		b.mu.Unlock()
		return false
	}
	b.inFlight = true
	ctx := b.ctx
	b.mu.Unlock()

	b.bridge.RequestCredential(ctx)
	return true
}

// Busy reports whether a request is pending.
func (b *Button) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

// Unmount drops any pending result. Provider callbacks that arrive later are
// no-ops. The bridge stays open for other buttons on the same provider; the
// registry closes it.
func (b *Button) Unmount() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mounted = false
	b.inFlight = false
}

// settle ends the pending request and returns its context, or false when the
// result is stale.
func (b *Button) settle() (context.Context, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted || !b.inFlight {
		return nil, false
	}
	return b.ctx, true
}

func (b *Button) handleAttempt(attempt models.AuthAttempt) {
	ctx, ok := b.settle()
	if !ok {
		b.logger.Debug("ignoring stale provider credential", "provider", b.Provider().String())
		return
	}

	sess, err := b.sessions.LoginWithCredential(ctx, attempt)
	if !b.finish() {
		return
	}
	if err != nil {
		b.report(err)
		return
	}
	if b.onSignedIn != nil {
		b.onSignedIn(sess)
	}
}

func (b *Button) handleFailure(err error) {
	if _, ok := b.settle(); !ok {
		return
	}
	if b.finish() {
		b.report(err)
	}
}

// finish clears inFlight and reports whether the button is still mounted.
func (b *Button) finish() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight = false
	return b.mounted
}

func (b *Button) report(err error) {
	b.logger.Info("provider sign-in failed",
		"provider", b.Provider().String(),
		"code", string(dErrors.CodeOf(err)),
	)
	if b.onError != nil {
		b.onError(dErrors.UserMessage(err), err)
	}
}
