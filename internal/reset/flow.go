// Package reset implements the token-gated password reset:
//
//	AWAITING_INPUT --submit (valid)--> SUBMITTING
//	SUBMITTING --backend accepts--> SUCCESS (redirect scheduled)
//	SUBMITTING --backend declines--> AWAITING_INPUT with message
//
// A flow without a token is disabled from the start and never calls the backend.
package reset

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/gate"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/platform/metrics"
	dErrors "gatehouse/pkg/domain-errors"
)

type State string

const (
	StateAwaitingInput State = "AWAITING_INPUT"
	StateSubmitting    State = "SUBMITTING"
	StateSuccess       State = "SUCCESS"
)

const (
	MinPasswordLength    = 8
	MaxPasswordLength    = 15
	DefaultRedirectDelay = 3 * time.Second
)

const (
	MsgInvalidToken = "Invalid or expired token. Request a new reset link."
	MsgLength       = "Password must be between 8 and 15 characters"
	MsgMismatch     = "Passwords do not match"
	MsgSuccess      = "Your password has been reset. Redirecting to sign in..."
)

// Resetter submits a new password for a token.
type Resetter interface {
	ResetPassword(ctx context.Context, token models.ResetToken, newPassword, confirm string) (string, error)
}

// View is what the reset form renders.
type View struct {
	State         State
	Message       string
	PasswordError string
	ConfirmError  string
	// Disabled is set when the flow has no token; submission is impossible.
	Disabled bool
}

// Flow is one mounted reset form.
type Flow struct {
	token    models.ResetToken
	backend  Resetter
	navigate func(path string)
	targets  gate.Targets
	delay    time.Duration
	clock    Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	view      View
	timer     Timer
	closed    bool
	navigated bool
}

type Option func(*Flow)

func WithClock(c Clock) Option {
	return func(f *Flow) {
		if c != nil {
			f.clock = c
		}
	}
}

func WithRedirectDelay(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.delay = d
		}
	}
}

func WithTargets(t gate.Targets) Option {
	return func(f *Flow) { f.targets = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.logger = logger.OrDiscard(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Flow) { f.metrics = m }
}

// NewFlow mounts the form for token. navigate is called at most once, with
// the anonymous entry, after a successful reset.
func NewFlow(token models.ResetToken, backend Resetter, navigate func(path string), opts ...Option) *Flow {
	f := &Flow{
		token:    token,
		backend:  backend,
		navigate: navigate,
		targets:  gate.DefaultTargets(),
		delay:    DefaultRedirectDelay,
		clock:    realClock{},
		logger:   logger.Discard(),
		view:     View{State: StateAwaitingInput},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if !token.Present() {
		f.view.Disabled = true
		f.view.Message = MsgInvalidToken
	}
	return f
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Validate checks the password pair without touching flow state.
func Validate(newPassword, confirm string) (passwordErr, confirmErr string) {
	if n := utf8.RuneCountInString(newPassword); n < MinPasswordLength || n > MaxPasswordLength {
		passwordErr = MsgLength
	}
	if newPassword != confirm {
		confirmErr = MsgMismatch
	}
	return passwordErr, confirmErr
}

// Submit validates locally and, when valid, makes exactly one backend call.
func (f *Flow) Submit(ctx context.Context, newPassword, confirm string) error {
	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return dErrors.New(dErrors.CodeInvalidState, "The reset form is closed")
	case f.view.Disabled:
		f.mu.Unlock()
		return dErrors.New(dErrors.CodeInvalidState, MsgInvalidToken)
	case f.view.State != StateAwaitingInput:
		f.mu.Unlock()
		return dErrors.New(dErrors.CodeInvalidState, "Your reset is already being processed")
	}

	pwErr, confirmErr := Validate(newPassword, confirm)
	if pwErr != "" || confirmErr != "" {
		f.view.PasswordError, f.view.ConfirmError = pwErr, confirmErr
		f.view.Message = ""
		f.mu.Unlock()
		f.metrics.ObservePasswordReset("invalid")
		msg := pwErr
		if msg == "" {
			msg = confirmErr
		}
		return dErrors.New(dErrors.CodeBadRequest, msg)
	}

	f.view = View{State: StateSubmitting}
	token := f.token
	f.mu.Unlock()

	msg, err := f.backend.ResetPassword(ctx, token, newPassword, confirm)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.logger.DebugContext(ctx, "reset result arrived after close")
		return err
	}
	if err != nil {
		f.view = View{State: StateAwaitingInput, Message: dErrors.UserMessage(err)}
		f.metrics.ObservePasswordReset("failure")
		f.logger.InfoContext(ctx, "password reset declined", "code", string(dErrors.CodeOf(err)))
		return err
	}

	if msg == "" {
		msg = MsgSuccess
	}
	f.view = View{State: StateSuccess, Message: msg}
	f.timer = f.clock.AfterFunc(f.delay, f.redirect)
	f.metrics.ObservePasswordReset("success")
	f.logger.InfoContext(ctx, "password reset succeeded; redirect scheduled", "delay", f.delay.String())
	return nil
}

func (f *Flow) redirect() {
	f.mu.Lock()
	if f.closed || f.navigated {
		f.mu.Unlock()
		return
	}
	f.navigated = true
	target := f.targets.Target(gate.DecisionRedirectAnonymous)
	f.mu.Unlock()

	if f.navigate != nil {
		f.navigate(target)
	}
}

// RequestNewLink leaves the form for the forgot-password entry.
func (f *Flow) RequestNewLink() {
	f.mu.Lock()
	if f.closed || f.navigated {
		f.mu.Unlock()
		return
	}
	f.navigated = true
	if f.timer != nil {
		f.timer.Stop()
	}
	target := f.targets.Target(gate.DecisionRedirectResetEntry)
	f.mu.Unlock()

	if f.navigate != nil {
		f.navigate(target)
	}
}

// Close unmounts the form: the pending redirect is cancelled and late
// results are ignored.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
	}
}
