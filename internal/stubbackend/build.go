package stubbackend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	authModels "gatehouse/internal/auth/models"
	"gatehouse/internal/platform/config"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/stubbackend/store/resettoken"
	"gatehouse/internal/stubbackend/store/user"
	"gatehouse/internal/stubbackend/token"
	"gatehouse/internal/stubbackend/verify"
)

const tokenIssuer = "gatehouse-stub"

// Server is a wired stub backend.
type Server struct {
	Handler http.Handler
	Service *Service
	Resets  *resettoken.InMemoryResetTokenStore
}

// Build wires stores, token service, verifiers and routes from cfg and
// seeds the admin account.
func Build(ctx context.Context, cfg config.StubBackend, log *slog.Logger, reg *prometheus.Registry, opts ...Option) (*Server, error) {
	log = logger.OrDiscard(log)

	verifiers, err := buildVerifiers(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens := token.NewService(cfg.JWTSigningKey, tokenIssuer, cfg.TokenTTL)
	resets := resettoken.New()
	base := []Option{
		WithLogger(log),
		WithResetTTL(cfg.ResetTokenTTL),
		WithPublicResetURL(cfg.PublicResetURL),
	}
	for provider, v := range verifiers {
		base = append(base, WithVerifier(provider, v))
	}
	svc := New(user.New(), resets, tokens, append(base, opts...)...)

	if err := svc.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	h := NewHandler(svc, token.NewAdapter(tokens), cfg.AdminToken, log)
	return &Server{
		Handler: NewRouter(h, RouterConfig{Logger: log, Registry: reg}),
		Service: svc,
		Resets:  resets,
	}, nil
}

func buildVerifiers(ctx context.Context, cfg config.StubBackend) (map[authModels.ProviderName]verify.Verifier, error) {
	if !cfg.VerifyProviders {
		return map[authModels.ProviderName]verify.Verifier{
			authModels.ProviderGoogle:   verify.Dev{},
			authModels.ProviderFacebook: verify.Dev{},
		}, nil
	}
	if cfg.GoogleClientID == "" {
		return nil, fmt.Errorf("STUB_GOOGLE_CLIENT_ID is required when STUB_VERIFY_PROVIDERS is set")
	}
	google, err := verify.NewGoogle(ctx, cfg.GoogleIssuer, cfg.GoogleClientID, nil)
	if err != nil {
		return nil, err
	}
	return map[authModels.ProviderName]verify.Verifier{
		authModels.ProviderGoogle:   google,
		authModels.ProviderFacebook: verify.Facebook{GraphURL: cfg.FacebookGraphURL},
	}, nil
}
