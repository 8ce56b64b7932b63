// Package verify turns an opaque provider credential into a provider
// identity. The stub backend is the only place credentials are inspected.
package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Identity is what a provider vouches for.
type Identity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// Verifier checks one provider's credentials.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, credential string) (Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, credential string) (Identity, error) {
	return f(ctx, credential)
}

// Dev accepts any non-empty credential and derives a stable subject from it.
// Use it only against local development clients.
type Dev struct{}

func (Dev) Verify(_ context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, fmt.Errorf("empty credential")
	}
	sum := sha256.Sum256([]byte(credential))
	return Identity{Subject: "dev-" + hex.EncodeToString(sum[:10])}, nil
}

type profileClaims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Google accepts either an ID token from the silent prompt or an access
// token from the popup flow, checked against the issuer's userinfo endpoint.
type Google struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	client   *http.Client
}

// NewGoogle discovers issuer. client may be nil.
func NewGoogle(ctx context.Context, issuer, clientID string, client *http.Client) (*Google, error) {
	if client == nil {
		client = http.DefaultClient
	}
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), issuer)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", issuer, err)
	}
	return &Google{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		client:   client,
	}, nil
}

func (g *Google) Verify(ctx context.Context, credential string) (Identity, error) {
	ctx = oidc.ClientContext(ctx, g.client)

	if idToken, err := g.verifier.Verify(ctx, credential); err == nil {
		var claims profileClaims
		if err := idToken.Claims(&claims); err != nil {
			return Identity{}, fmt.Errorf("decode id token claims: %w", err)
		}
		return Identity{
			Subject:   idToken.Subject,
			Email:     claims.Email,
			FirstName: claims.GivenName,
			LastName:  claims.FamilyName,
		}, nil
	}

	info, err := g.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential}))
	if err != nil {
		return Identity{}, fmt.Errorf("userinfo: %w", err)
	}
	var claims profileClaims
	if err := info.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return Identity{
		Subject:   info.Subject,
		Email:     info.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
	}, nil
}

// Facebook checks an access token against the Graph API /me endpoint.
type Facebook struct {
	GraphURL string
	Client   *http.Client
}

const maxGraphBytes = 1 << 16

type graphMe struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (f Facebook) Verify(ctx context.Context, credential string) (Identity, error) {
	if f.Client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.Client)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential}))

	endpoint, err := url.JoinPath(f.GraphURL, "me")
	if err != nil {
		return Identity{}, fmt.Errorf("graph url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?fields=id,email,first_name,last_name", nil)
	if err != nil {
		return Identity{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	var me graphMe
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGraphBytes)).Decode(&me); err != nil {
		return Identity{}, fmt.Errorf("decode graph response: %w", err)
	}
	if me.Error != nil {
		return Identity{}, fmt.Errorf("graph: %s", me.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || me.ID == "" {
		return Identity{}, fmt.Errorf("graph status %d", resp.StatusCode)
	}
	return Identity{Subject: me.ID, Email: me.Email, FirstName: me.FirstName, LastName: me.LastName}, nil
}
