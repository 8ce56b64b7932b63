package reset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"gatehouse/internal/auth/models"
	dErrors "gatehouse/pkg/domain-errors"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance fires every live timer due within d.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	due := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.stopped && t.d <= d {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type resetCall struct {
	token             models.ResetToken
	password, confirm string
}

type fakeResetter struct {
	calls []resetCall
	msg   string
	err   error
}

func (f *fakeResetter) ResetPassword(_ context.Context, token models.ResetToken, pw, confirm string) (string, error) {
	f.calls = append(f.calls, resetCall{token: token, password: pw, confirm: confirm})
	return f.msg, f.err
}

type FlowSuite struct {
	suite.Suite
	clock     *fakeClock
	backend   *fakeResetter
	navigated []string
	flow      *Flow
	ctx       context.Context
}

func TestFlowSuite(t *testing.T) {
	suite.Run(t, new(FlowSuite))
}

func (s *FlowSuite) SetupTest() {
	s.clock = &fakeClock{}
	s.backend = &fakeResetter{}
	s.navigated = nil
	s.ctx = context.Background()
	s.flow = s.newFlow("abc123")
}

func (s *FlowSuite) newFlow(token models.ResetToken) *Flow {
	return NewFlow(token, s.backend, func(path string) { s.navigated = append(s.navigated, path) }, WithClock(s.clock))
}

func (s *FlowSuite) TestMissingTokenDisablesSubmission() {
	for _, token := range []models.ResetToken{"", "   "} {
		flow := s.newFlow(token)
		v := flow.View()
		s.True(v.Disabled)
		s.Equal(MsgInvalidToken, v.Message)

		err := flow.Submit(s.ctx, "goodpass1", "goodpass1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	}
	s.Empty(s.backend.calls)
}

func (s *FlowSuite) TestValidationBlocksSubmission() {
	s.Run("too short", func() {
		s.SetupTest()
		err := s.flow.Submit(s.ctx, "short", "short")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Equal(MsgLength, s.flow.View().PasswordError)
		s.Equal(StateAwaitingInput, s.flow.View().State)
		s.Empty(s.backend.calls)
	})

	s.Run("too long", func() {
		s.SetupTest()
		s.Error(s.flow.Submit(s.ctx, "sixteencharacter", "sixteencharacter"))
		s.Equal(MsgLength, s.flow.View().PasswordError)
		s.Empty(s.backend.calls)
	})

	s.Run("mismatch", func() {
		s.SetupTest()
		s.Error(s.flow.Submit(s.ctx, "goodpass1", "different1"))
		v := s.flow.View()
		s.Empty(v.PasswordError)
		s.Equal(MsgMismatch, v.ConfirmError)
		s.Empty(s.backend.calls)
	})

	s.Run("length is counted in characters", func() {
		s.SetupTest()
		pw := "ééééééééé"
		s.Require().NoError(s.flow.Submit(s.ctx, pw, pw))
		s.Len(s.backend.calls, 1)
	})
}

func (s *FlowSuite) TestBoundaryLengths() {
	for _, candidate := range []string{"12345678", "123456789012345"} {
		pwErr, confirmErr := Validate(candidate, candidate)
		s.Empty(pwErr)
		s.Empty(confirmErr)
	}
	pwErr, _ := Validate("1234567", "1234567")
	s.Equal(MsgLength, pwErr)
}

func (s *FlowSuite) TestSuccessSchedulesOneRedirect() {
	s.Require().NoError(s.flow.Submit(s.ctx, "goodpass1", "goodpass1"))
	s.Require().Len(s.backend.calls, 1)
	s.Equal(resetCall{token: "abc123", password: "goodpass1", confirm: "goodpass1"}, s.backend.calls[0])

	v := s.flow.View()
	s.Equal(StateSuccess, v.State)
	s.Equal(MsgSuccess, v.Message)
	s.Empty(s.navigated, "redirect waits for the delay")

	s.Require().Len(s.clock.timers, 1)
	s.Equal(DefaultRedirectDelay, s.clock.timers[0].d)

	s.clock.Advance(DefaultRedirectDelay)
	s.Equal([]string{"/login"}, s.navigated)

	s.clock.timers[0].f()
	s.Equal([]string{"/login"}, s.navigated, "navigation happens once")

	err := s.flow.Submit(s.ctx, "goodpass1", "goodpass1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *FlowSuite) TestBackendDeclineReturnsToInput() {
	s.Run("with backend message", func() {
		s.SetupTest()
		s.backend.err = dErrors.New(dErrors.CodeBackendRejected, "Reset link has expired")
		err := s.flow.Submit(s.ctx, "goodpass1", "goodpass1")
		s.True(dErrors.HasCode(err, dErrors.CodeBackendRejected))
		v := s.flow.View()
		s.Equal(StateAwaitingInput, v.State)
		s.Equal("Reset link has expired", v.Message)
		s.Empty(s.clock.timers)
	})

	s.Run("without message falls back to generic", func() {
		s.SetupTest()
		s.backend.err = errors.New("connection reset")
		s.Error(s.flow.Submit(s.ctx, "goodpass1", "goodpass1"))
		s.Equal(dErrors.GenericMessage, s.flow.View().Message)
	})

	s.Run("retry after decline makes a second call", func() {
		s.SetupTest()
		s.backend.err = dErrors.New(dErrors.CodeBackendRejected, "Try again")
		s.Error(s.flow.Submit(s.ctx, "goodpass1", "goodpass1"))
		s.backend.err = nil
		s.NoError(s.flow.Submit(s.ctx, "goodpass1", "goodpass1"))
		s.Len(s.backend.calls, 2)
	})
}

func (s *FlowSuite) TestCloseCancelsRedirect() {
	s.Require().NoError(s.flow.Submit(s.ctx, "goodpass1", "goodpass1"))
	s.flow.Close()
	s.True(s.clock.timers[0].stopped)

	s.clock.timers[0].f()
	s.Empty(s.navigated)
	s.True(dErrors.HasCode(s.flow.Submit(s.ctx, "goodpass1", "goodpass1"), dErrors.CodeInvalidState))
}

func (s *FlowSuite) TestRequestNewLink() {
	flow := s.newFlow("")
	flow.RequestNewLink()
	flow.RequestNewLink()
	s.Equal([]string{"/forgot-password"}, s.navigated)
}

func TestRealTimerLeavesNoGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	done := make(chan string, 1)
	flow := NewFlow("abc123", &fakeResetter{}, func(path string) { done <- path }, WithRedirectDelay(10*time.Millisecond))
	if err := flow.Submit(context.Background(), "goodpass1", "goodpass1"); err != nil {
		t.Fatal(err)
	}
	select {
	case path := <-done:
		if path != "/login" {
			t.Fatalf("navigated to %q", path)
		}
	case <-time.After(time.Second):
		t.Fatal("redirect did not fire")
	}
	flow.Close()
}

func TestClosedBeforeDelayLeavesNoGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fired := make(chan struct{}, 1)
	flow := NewFlow("abc123", &fakeResetter{}, func(string) { fired <- struct{}{} }, WithRedirectDelay(time.Hour))
	if err := flow.Submit(context.Background(), "goodpass1", "goodpass1"); err != nil {
		t.Fatal(err)
	}
	flow.Close()
	select {
	case <-fired:
		t.Fatal("redirect fired after close")
	default:
	}
}
