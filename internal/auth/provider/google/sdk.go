package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"gatehouse/internal/auth/normalizer"
	"gatehouse/internal/auth/provider"
	dErrors "gatehouse/pkg/domain-errors"
)

// DefaultIssuer is Google's OpenID issuer.
const DefaultIssuer = "https://accounts.google.com"

// OAuth2SDK drives Google over OpenID discovery and the authorization-code
// exchange. The silent prompt succeeds only when an earlier popup left an
// unexpired ID token behind.
type OAuth2SDK struct {
	consent provider.ConsentFunc

	mu           sync.Mutex
	conf         oauth2.Config
	onCredential func(normalizer.IDTokenPayload)
	cached       *oauth2.Token
}

// NewOAuth2SDK copies conf; its Endpoint is filled in by the discovery loader.
func NewOAuth2SDK(conf oauth2.Config, consent provider.ConsentFunc) *OAuth2SDK {
	if len(conf.Scopes) == 0 {
		conf.Scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}
	return &OAuth2SDK{conf: conf, consent: consent}
}

// DiscoveryLoader resolves the issuer's endpoints. It is the provider script
// load for Google.
func (s *OAuth2SDK) DiscoveryLoader(client *http.Client, issuer string) provider.Loader {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return provider.LoaderFunc(func(ctx context.Context) error {
		if client != nil {
			ctx = oidc.ClientContext(ctx, client)
		}
		p, err := oidc.NewProvider(ctx, issuer)
		if err != nil {
			return fmt.Errorf("discover %s: %w", issuer, err)
		}
		s.mu.Lock()
		s.conf.Endpoint = p.Endpoint()
		s.mu.Unlock()
		return nil
	})
}

func (s *OAuth2SDK) Initialize(clientID string, onCredential func(normalizer.IDTokenPayload)) error {
	if clientID == "" {
		return errors.New("client id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conf.Endpoint.AuthURL == "" || s.conf.Endpoint.TokenURL == "" {
		return errors.New("issuer endpoints are not discovered")
	}
	s.conf.ClientID = clientID
	s.onCredential = onCredential
	return nil
}

func (s *OAuth2SDK) Prompt(_ context.Context, onMoment func(Moment)) {
	s.mu.Lock()
	tok, cb, clientID := s.cached, s.onCredential, s.conf.ClientID
	s.mu.Unlock()

	idToken := idTokenOf(tok)
	if idToken == "" || !tok.Valid() || cb == nil {
		onMoment(Moment{Kind: MomentNotDisplayed, Reason: "no_session"})
		return
	}
	cb(normalizer.IDTokenPayload{Credential: idToken, SelectBy: "auto", ClientID: clientID})
	onMoment(Moment{Kind: MomentDismissed, Reason: ReasonCredentialReturned})
}

func (s *OAuth2SDK) RequestAccessToken(ctx context.Context, scope string, onToken func(TokenResponse)) {
	s.mu.Lock()
	conf := s.conf
	s.mu.Unlock()

	tok, err := provider.Popup{Config: &conf, Consent: s.consent, PKCE: true}.Run(ctx)
	if err != nil {
		onToken(TokenResponse{Error: string(dErrors.CodeOf(err)), ErrorDescription: dErrors.UserMessage(err)})
		return
	}

	s.mu.Lock()
	s.cached = tok
	s.mu.Unlock()

	expiresIn := 0
	if !tok.Expiry.IsZero() {
		expiresIn = int(time.Until(tok.Expiry).Seconds())
	}
	onToken(TokenResponse{AccessTokenPayload: normalizer.AccessTokenPayload{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Scope:       scope,
		ExpiresIn:   expiresIn,
	}})
}

func idTokenOf(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	id, _ := tok.Extra("id_token").(string)
	return id
}
