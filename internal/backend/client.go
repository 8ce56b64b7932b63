// Package backend is the HTTP client for the credential verifier and token
// issuer. Every response is an Envelope; a declined request surfaces as
// CodeBackendRejected carrying the backend's message, anything else that goes
// wrong on the way is CodeNetworkOrUnknown.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gatehouse/internal/auth/models"
	"gatehouse/internal/platform/logger"
	dErrors "gatehouse/pkg/domain-errors"
)

var tracer = otel.Tracer("gatehouse/backend")

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20
)

// Client calls the backend endpoints.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client; its Timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = logger.OrDiscard(l) }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Login(ctx context.Context, cred models.LocalCredential) (models.Session, error) {
	return c.session(ctx, "backend.login", PathLogin, LoginRequest(cred))
}

func (c *Client) Register(ctx context.Context, reg models.Registration) (models.Session, error) {
	return c.session(ctx, "backend.register", PathRegister, reg)
}

func (c *Client) ProviderLogin(ctx context.Context, provider models.ProviderName, credential string) (models.Session, error) {
	if provider == "" {
		return models.Session{}, dErrors.New(dErrors.CodeMalformedCredential, "provider name is required")
	}
	return c.session(ctx, "backend.provider_login", PathProviderPrefix+url.PathEscape(provider.String()),
		ProviderLoginRequest{OpaqueCredential: credential})
}

// ForgotPassword asks the backend to mail a reset link. It returns the
// backend's confirmation message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	env, err := c.do(ctx, "backend.forgot_password", PathForgotPassword, nil, ForgotPasswordRequest{Email: email})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// ResetPassword submits a new password for the reset token.
func (c *Client) ResetPassword(ctx context.Context, token models.ResetToken, newPassword, confirm string) (string, error) {
	q := url.Values{models.ResetTokenParam: {token.String()}}
	env, err := c.do(ctx, "backend.reset_password", PathResetPassword, q, ResetPasswordRequest{
		NewPassword:        newPassword,
		NewPasswordConfirm: confirm,
	})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) session(ctx context.Context, op, path string, body any) (models.Session, error) {
	env, err := c.do(ctx, op, path, nil, body)
	if err != nil {
		return models.Session{}, err
	}
	var sess models.Session
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &sess); err != nil {
			return models.Session{}, dErrors.Wrap(err, dErrors.CodeNetworkOrUnknown, dErrors.GenericMessage)
		}
	}
	if !sess.IsAuthenticated() {
		return models.Session{}, dErrors.New(dErrors.CodeBackendRejected, messageOr(env.Message, "Sign-in did not return a session"))
	}
	return sess, nil
}

func (c *Client) do(ctx context.Context, op, path string, query url.Values, body any) (_ Envelope, err error) {
	ctx, span := tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.route", path)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, dErrors.Wrap(err, dErrors.CodeInternal, dErrors.GenericMessage)
	}

	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return Envelope{}, dErrors.Wrap(err, dErrors.CodeNetworkOrUnknown, dErrors.GenericMessage)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "backend request failed", "op", op, "error", err)
		return Envelope{}, transportError(err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Envelope{}, transportError(err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.WarnContext(ctx, "backend returned a non-envelope response", "op", op, "status", resp.StatusCode)
		return Envelope{}, dErrors.Wrap(err, dErrors.CodeNetworkOrUnknown, dErrors.GenericMessage)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return Envelope{}, dErrors.Wrap(fmt.Errorf("backend status %d", resp.StatusCode),
			dErrors.CodeNetworkOrUnknown, messageOr(env.Message, dErrors.GenericMessage))
	case !env.Success || resp.StatusCode >= http.StatusBadRequest:
		return Envelope{}, dErrors.New(dErrors.CodeBackendRejected, messageOr(env.Message, dErrors.GenericMessage))
	}
	return env, nil
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeNetworkOrUnknown, "The request timed out. Please try again.")
	}
	return dErrors.Wrap(err, dErrors.CodeNetworkOrUnknown, "Could not reach the server. Check your connection and try again.")
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
