package facebook

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	fbendpoint "golang.org/x/oauth2/facebook"

	"gatehouse/internal/auth/normalizer"
	"gatehouse/internal/auth/provider"
	dErrors "gatehouse/pkg/domain-errors"
)

// OAuth2SDK runs the Facebook login dialog as an authorization-code exchange.
type OAuth2SDK struct {
	consent provider.ConsentFunc

	mu   sync.Mutex
	conf oauth2.Config
}

// NewOAuth2SDK copies conf and defaults its Endpoint to Facebook's.
func NewOAuth2SDK(conf oauth2.Config, consent provider.ConsentFunc) *OAuth2SDK {
	if conf.Endpoint.AuthURL == "" {
		conf.Endpoint = fbendpoint.Endpoint
	}
	return &OAuth2SDK{conf: conf, consent: consent}
}

func (s *OAuth2SDK) Init(appID string) error {
	if appID == "" {
		return errors.New("app id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conf.ClientID = appID
	return nil
}

func (s *OAuth2SDK) Login(ctx context.Context, scope string, cb func(LoginStatus)) {
	s.mu.Lock()
	conf := s.conf
	s.mu.Unlock()
	if scope != "" {
		conf.Scopes = strings.Split(scope, ",")
	}

	tok, err := provider.Popup{Config: &conf, Consent: s.consent, PKCE: true}.Run(ctx)
	if err != nil {
		status := StatusUnknown
		if dErrors.HasCode(err, dErrors.CodeNoCredentialReceived) {
			status = StatusNotAuthorized
		}
		cb(LoginStatus{Status: status})
		return
	}

	expiresIn := 0
	if !tok.Expiry.IsZero() {
		expiresIn = int(time.Until(tok.Expiry).Seconds())
	}
	userID, _ := tok.Extra("user_id").(string)
	cb(LoginStatus{
		Status: StatusConnected,
		AuthResponse: &normalizer.FacebookAuthResponse{
			Status:      StatusConnected,
			AccessToken: tok.AccessToken,
			UserID:      userID,
			ExpiresIn:   expiresIn,
		},
	})
}
