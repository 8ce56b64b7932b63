package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/platform/metrics"
	dErrors "gatehouse/pkg/domain-errors"
)

type HandleSuite struct {
	suite.Suite
	metrics *metrics.Metrics
}

func TestHandleSuite(t *testing.T) {
	suite.Run(t, new(HandleSuite))
}

func (s *HandleSuite) SetupTest() {
	s.metrics = metrics.New(prometheus.NewRegistry())
}

type countingLoader struct {
	calls   atomic.Int32
	release chan struct{}
	errs    []error
	mu      sync.Mutex
}

func (l *countingLoader) Load(ctx context.Context) error {
	n := l.calls.Add(1)
	if l.release != nil {
		select {
		case <-l.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if int(n) <= len(l.errs) {
		return l.errs[n-1]
	}
	return nil
}

func (s *HandleSuite) TestEnsureReadyInjectsOnce() {
	s.Run("concurrent callers share one load", func() {
		loader := &countingLoader{release: make(chan struct{})}
		h := NewHandle(models.ProviderGoogle, loader, WithHandleMetrics(s.metrics))

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- h.EnsureReady(context.Background())
			}()
		}
		s.Eventually(func() bool { return loader.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		close(loader.release)
		wg.Wait()
		close(errs)

		for err := range errs {
			s.NoError(err)
		}
		s.Equal(int32(1), loader.calls.Load())
		s.True(h.State().ScriptLoaded)
	})

	s.Run("sequential callers after success do not reload", func() {
		loader := &countingLoader{}
		h := NewHandle(models.ProviderFacebook, loader)
		s.Require().NoError(h.EnsureReady(context.Background()))
		s.Require().NoError(h.EnsureReady(context.Background()))
		s.Require().NoError(h.EnsureReady(context.Background()))
		s.Equal(int32(1), loader.calls.Load())
	})
}

func (s *HandleSuite) TestEnsureReadyFailureIsRetryable() {
	loader := &countingLoader{errs: []error{errors.New("blocked by network")}}
	h := NewHandle(models.ProviderGoogle, loader, WithHandleMetrics(s.metrics))

	err := h.EnsureReady(context.Background())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeScriptLoadFailed))
	st := h.State()
	s.False(st.ScriptLoaded)
	s.Equal(dErrors.CodeScriptLoadFailed, st.LastError)

	s.Require().NoError(h.EnsureReady(context.Background()))
	s.Equal(int32(2), loader.calls.Load())
	s.True(h.State().ScriptLoaded)
	s.Empty(h.State().LastError)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.ScriptLoads.WithLabelValues("google", "failure")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ScriptLoads.WithLabelValues("google", "success")))
}

func (s *HandleSuite) TestEnsureReadyTimesOut() {
	loader := &countingLoader{release: make(chan struct{})}
	h := NewHandle(models.ProviderGoogle, loader, WithLoadTimeout(20*time.Millisecond))

	err := h.EnsureReady(context.Background())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeScriptLoadFailed))
	s.ErrorIs(err, context.DeadlineExceeded)
	s.False(h.State().ScriptLoaded)
}

func (s *HandleSuite) TestCallerCancelDoesNotAbortSharedLoad() {
	loader := &countingLoader{release: make(chan struct{})}
	h := NewHandle(models.ProviderGoogle, loader)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.EnsureReady(ctx) }()
	s.Eventually(func() bool { return loader.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)

	close(loader.release)
	s.Eventually(func() bool { return h.State().ScriptLoaded }, time.Second, 5*time.Millisecond)
	s.Require().NoError(h.EnsureReady(context.Background()))
	s.Equal(int32(1), loader.calls.Load())
}

func (s *HandleSuite) TestInitialize() {
	s.Run("requires a loaded script", func() {
		h := NewHandle(models.ProviderGoogle, &countingLoader{})
		err := h.Initialize(func() error { return nil })
		s.True(dErrors.HasCode(err, dErrors.CodeProviderInitFailed))
		s.False(h.State().Initialized)
	})

	s.Run("runs once after success", func() {
		h := NewHandle(models.ProviderGoogle, &countingLoader{})
		s.Require().NoError(h.EnsureReady(context.Background()))

		calls := 0
		for range 3 {
			s.Require().NoError(h.Initialize(func() error { calls++; return nil }))
		}
		s.Equal(1, calls)
		s.True(h.State().Initialized)
	})

	s.Run("failed init is retried", func() {
		h := NewHandle(models.ProviderGoogle, &countingLoader{})
		s.Require().NoError(h.EnsureReady(context.Background()))

		err := h.Initialize(func() error { return errors.New("bad client id") })
		s.True(dErrors.HasCode(err, dErrors.CodeProviderInitFailed))
		s.Equal(dErrors.CodeProviderInitFailed, h.State().LastError)

		s.Require().NoError(h.Initialize(func() error { return nil }))
		s.True(h.State().Initialized)
	})
}
