package stubbackend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authModels "gatehouse/internal/auth/models"
	"gatehouse/internal/backend"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/stubbackend/models"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/middleware/admin"
	authmw "gatehouse/pkg/platform/middleware/auth"
	"gatehouse/pkg/requestcontext"
)

const maxRequestBytes = 1 << 16

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks AuthService

// AuthService is what the handler needs from Service.
type AuthService interface {
	Login(ctx context.Context, email, password string) (authModels.Session, error)
	Register(ctx context.Context, reg authModels.Registration) (authModels.Session, error)
	ProviderLogin(ctx context.Context, provider authModels.ProviderName, credential string) (authModels.Session, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword, confirm string) (string, error)
	Profile(ctx context.Context, userID string) (authModels.Session, error)
	Outbox() []models.OutboxMessage
}

// Handler serves the backend endpoints.
type Handler struct {
	svc          AuthService
	logger       *slog.Logger
	jwtValidator authmw.JWTValidator
	adminToken   string
}

func NewHandler(svc AuthService, jwtValidator authmw.JWTValidator, adminToken string, l *slog.Logger) *Handler {
	return &Handler{
		svc:          svc,
		logger:       logger.OrDiscard(l),
		jwtValidator: jwtValidator,
		adminToken:   adminToken,
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post(backend.PathLogin, h.handleLogin)
	r.Post(backend.PathRegister, h.handleRegister)
	r.Post(backend.PathForgotPassword, h.handleForgotPassword)
	r.Post(backend.PathResetPassword, h.handleResetPassword)
	r.Post(backend.PathProviderPrefix+"{provider}", h.handleProviderLogin)

	r.With(authmw.RequireAuth(h.jwtValidator, nil, h.logger)).Get("/auth/me", h.handleMe)
	r.With(admin.RequireAdminToken(h.adminToken, h.logger)).Get("/admin/outbox", h.handleOutbox)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req backend.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authModels.Registration
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Register(r.Context(), req)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) handleProviderLogin(w http.ResponseWriter, r *http.Request) {
	var req backend.ProviderLoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	provider := authModels.ProviderName(chi.URLParam(r, "provider"))
	sess, err := h.svc.ProviderLogin(r.Context(), provider, req.OpaqueCredential)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req backend.ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	msg, err := h.svc.ForgotPassword(r.Context(), req.Email)
	h.writeMessage(w, r, msg, err)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req backend.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	token := authModels.ResetTokenFromQuery(r.URL.Query())
	msg, err := h.svc.ResetPassword(r.Context(), token.String(), req.NewPassword, req.NewPasswordConfirm)
	h.writeMessage(w, r, msg, err)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := requestcontext.UserID(r.Context())
	if userID == "" {
		h.logger.ErrorContext(r.Context(), "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		h.writeError(w, r, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	sess, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, sess)
}

func (h *Handler) handleOutbox(w http.ResponseWriter, _ *http.Request) {
	h.writeData(w, http.StatusOK, h.svc.Outbox())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		writeEnvelope(w, http.StatusBadRequest, backend.Envelope{Message: "Invalid request body"})
		return false
	}
	return true
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, sess authModels.Session, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, sess)
}

func (h *Handler) writeMessage(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, backend.Envelope{Success: true, Message: msg})
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to encode response", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, backend.Envelope{Message: dErrors.GenericMessage})
		return
	}
	writeEnvelope(w, status, backend.Envelope{Success: true, Data: raw})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	msg := dErrors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		msg = dErrors.GenericMessage
	}
	writeEnvelope(w, status, backend.Envelope{Message: msg})
}

func writeEnvelope(w http.ResponseWriter, status int, env backend.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
