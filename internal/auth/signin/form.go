package signin

import (
	"context"
	"sync"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/auth/normalizer"
	dErrors "gatehouse/pkg/domain-errors"
)

// FormView is what the local form renders.
type FormView struct {
	Message    string
	Submitting bool
}

// Form is the local email/password form for sign-in and sign-up.
type Form struct {
	sessions Sessions

	mu   sync.Mutex
	view FormView
}

func NewForm(sessions Sessions) *Form {
	return &Form{sessions: sessions}
}

func (f *Form) View() FormView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// SubmitLogin signs in with an email and password.
func (f *Form) SubmitLogin(ctx context.Context, email, password string) (models.Session, error) {
	attempt, err := normalizer.Local(email, password)
	if err != nil {
		f.show(err)
		return models.Session{}, err
	}
	return f.submit(func() (models.Session, error) {
		return f.sessions.Login(ctx, attempt)
	})
}

// SubmitRegister creates an account and signs it in.
func (f *Form) SubmitRegister(ctx context.Context, reg models.Registration) (models.Session, error) {
	reg, err := normalizer.Registration(reg)
	if err != nil {
		f.show(err)
		return models.Session{}, err
	}
	return f.submit(func() (models.Session, error) {
		return f.sessions.RegisterAccount(ctx, reg)
	})
}

func (f *Form) submit(call func() (models.Session, error)) (models.Session, error) {
	f.mu.Lock()
	if f.view.Submitting {
		f.mu.Unlock()
		return models.Session{}, dErrors.New(dErrors.CodeInvalidState, "A sign-in is already in progress")
	}
	f.view = FormView{Submitting: true}
	f.mu.Unlock()

	sess, err := call()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.view.Submitting = false
	if err != nil {
		f.view.Message = dErrors.UserMessage(err)
		return models.Session{}, err
	}
	f.view.Message = ""
	return sess, nil
}

func (f *Form) show(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view.Message = dErrors.UserMessage(err)
}
