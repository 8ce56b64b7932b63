package provider

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	dErrors "gatehouse/pkg/domain-errors"
)

// CallbackParams is what the provider hands back on the redirect URL.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ParseCallback extracts CallbackParams from a redirect URL or a bare
// query string.
func ParseCallback(raw string) (CallbackParams, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CallbackParams{}, errors.New("empty callback")
	}
	query := raw
	if u, err := url.Parse(raw); err == nil && (u.RawQuery != "" || u.Scheme != "") {
		query = u.RawQuery
	}
	q, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return CallbackParams{}, fmt.Errorf("parse callback: %w", err)
	}
	return CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}, nil
}

// ConsentFunc shows authURL to the user and waits for the redirect.
type ConsentFunc func(ctx context.Context, authURL string) (CallbackParams, error)

// PasteConsent prints the consent URL to out and reads the redirected URL
// the user pastes into in. A single goroutine owns in for the life of the
// returned func; a prompt abandoned through ctx leaves its line to the next
// prompt.
func PasteConsent(in io.Reader, out io.Writer) ConsentFunc {
	feed := &lineFeed{reader: bufio.NewReader(in)}
	return func(ctx context.Context, authURL string) (CallbackParams, error) {
		fmt.Fprintf(out, "Open this URL to continue sign-in:\n\n  %s\n\nPaste the URL you were redirected to: ", authURL)

		line, err := feed.next(ctx)
		if err != nil {
			return CallbackParams{}, err
		}
		return ParseCallback(line)
	}
}

type lineResult struct {
	line string
	err  error
}

// lineFeed serializes reads of one bufio.Reader. The pump starts on first
// use and stops after the first read error.
type lineFeed struct {
	reader *bufio.Reader
	once   sync.Once
	lines  chan lineResult
}

func (f *lineFeed) next(ctx context.Context) (string, error) {
	f.once.Do(func() {
		f.lines = make(chan lineResult)
		go f.pump()
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-f.lines:
		if !ok {
			return "", io.EOF
		}
		return r.line, r.err
	}
}

func (f *lineFeed) pump() {
	defer close(f.lines)
	for {
		line, err := f.reader.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			f.lines <- lineResult{line: line}
			return
		}
		f.lines <- lineResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

// Popup runs the authorization-code exchange that stands in for a provider
// popup window.
type Popup struct {
	Config  *oauth2.Config
	Consent ConsentFunc
	// PKCE adds an S256 code challenge to the exchange.
	PKCE    bool
	Options []oauth2.AuthCodeOption
}

// Run returns the token issued by the provider. A user who declines or
// closes the consent yields CodeNoCredentialReceived.
func (p Popup) Run(ctx context.Context) (*oauth2.Token, error) {
	if p.Config == nil || p.Consent == nil {
		return nil, dErrors.New(dErrors.CodeProviderInitFailed, "Sign-in is not configured")
	}

	state := uuid.NewString()
	opts := append([]oauth2.AuthCodeOption{oauth2.AccessTypeOnline}, p.Options...)
	var verifier string
	if p.PKCE {
		verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}

	params, err := p.Consent(ctx, p.Config.AuthCodeURL(state, opts...))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNoCredentialReceived, "Sign-in was cancelled")
	}
	if params.Error != "" {
		msg := "Sign-in was cancelled"
		if params.ErrorDescription != "" {
			msg = params.ErrorDescription
		}
		return nil, dErrors.Wrap(errors.New(params.Error), dErrors.CodeNoCredentialReceived, msg)
	}
	if params.State != state {
		return nil, dErrors.New(dErrors.CodeMalformedCredential, "Sign-in response did not match the request")
	}
	if params.Code == "" {
		return nil, dErrors.New(dErrors.CodeNoCredentialReceived, "No credential was received")
	}

	var exchangeOpts []oauth2.AuthCodeOption
	if p.PKCE {
		exchangeOpts = append(exchangeOpts, oauth2.VerifierOption(verifier))
	}
	tok, err := p.Config.Exchange(ctx, params.Code, exchangeOpts...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetworkOrUnknown, "The provider could not complete sign-in")
	}
	return tok, nil
}
