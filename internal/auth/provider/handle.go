package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/platform/metrics"
	dErrors "gatehouse/pkg/domain-errors"
)

// DefaultLoadTimeout bounds a single script load.
const DefaultLoadTimeout = 10 * time.Second

// HandleState is the observable bridge state of one provider.
type HandleState struct {
	Provider     models.ProviderName
	ScriptLoaded bool
	Initialized  bool
	// LastError is the code of the most recent failure, empty after a success.
	LastError dErrors.Code
}

// Handle tracks script loading and initialization for one provider. Both
// steps are idempotent once they succeed; a failure leaves the handle
// retryable on the next user action.
type Handle struct {
	provider models.ProviderName
	loader   Loader
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	group  singleflight.Group
	initMu sync.Mutex

	mu           sync.RWMutex
	scriptLoaded bool
	initialized  bool
	lastError    dErrors.Code
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithLoadTimeout overrides DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) HandleOption {
	return func(h *Handle) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithHandleLogger sets the handle logger.
func WithHandleLogger(l *slog.Logger) HandleOption {
	return func(h *Handle) {
		h.logger = logger.OrDiscard(l)
	}
}

// WithHandleMetrics records script load outcomes.
func WithHandleMetrics(m *metrics.Metrics) HandleOption {
	return func(h *Handle) {
		h.metrics = m
	}
}

// NewHandle creates the handle on first use of a provider.
func NewHandle(provider models.ProviderName, loader Loader, opts ...HandleOption) *Handle {
	h := &Handle{
		provider: provider,
		loader:   loader,
		timeout:  DefaultLoadTimeout,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Provider returns the provider this handle belongs to.
func (h *Handle) Provider() models.ProviderName {
	return h.provider
}

// State returns a snapshot of the handle.
func (h *Handle) State() HandleState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HandleState{
		Provider:     h.provider,
		ScriptLoaded: h.scriptLoaded,
		Initialized:  h.initialized,
		LastError:    h.lastError,
	}
}

// EnsureReady loads the provider script once. Concurrent callers before the
// load settles share the same in-flight load. The load itself is detached
// from the caller's cancellation so one impatient caller cannot fail the
// others; it is bounded by the handle timeout instead.
func (h *Handle) EnsureReady(ctx context.Context) error {
	if h.State().ScriptLoaded {
		return nil
	}

	ch := h.group.DoChan("load", func() (any, error) {
		if h.State().ScriptLoaded {
			return nil, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
		defer cancel()

		err := h.loader.Load(loadCtx)
		if err == nil && loadCtx.Err() != nil {
			err = loadCtx.Err()
		}
		h.recordLoad(ctx, err)
		return nil, err
	})

	select {
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeScriptLoadFailed, "Sign-in is not available right now")
	case res := <-ch:
		if res.Err != nil {
			return dErrors.Wrap(res.Err, dErrors.CodeScriptLoadFailed, "Sign-in is not available right now")
		}
		return nil
	}
}

func (h *Handle) recordLoad(ctx context.Context, err error) {
	h.mu.Lock()
	if err != nil {
		h.lastError = dErrors.CodeScriptLoadFailed
	} else {
		h.scriptLoaded = true
		h.lastError = ""
	}
	h.mu.Unlock()

	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded)
		h.metrics.ObserveScriptLoad(h.provider.String(), "failure")
		h.logger.WarnContext(ctx, "provider script load failed",
			"provider", h.provider.String(),
			"timeout", timeout,
			"error", err,
		)
		return
	}
	h.metrics.ObserveScriptLoad(h.provider.String(), "success")
	h.logger.DebugContext(ctx, "provider script loaded", "provider", h.provider.String())
}

// Initialize runs init exactly once after the script is loaded. Later calls
// after a success are no-ops; a failed init is retried on the next call.
func (h *Handle) Initialize(init func() error) error {
	h.initMu.Lock()
	defer h.initMu.Unlock()

	st := h.State()
	if st.Initialized {
		return nil
	}
	if !st.ScriptLoaded {
		return dErrors.New(dErrors.CodeProviderInitFailed, "Sign-in is still loading")
	}

	if err := init(); err != nil {
		h.mu.Lock()
		h.lastError = dErrors.CodeProviderInitFailed
		h.mu.Unlock()
		h.logger.Warn("provider init failed", "provider", h.provider.String(), "error", err)
		return dErrors.Wrap(err, dErrors.CodeProviderInitFailed, "Sign-in could not be started")
	}

	h.mu.Lock()
	h.initialized = true
	h.lastError = ""
	h.mu.Unlock()
	return nil
}
