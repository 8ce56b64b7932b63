package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Loader makes a provider's client library available. Load returns once the
// library is usable or fails; it never retries on its own.
type Loader interface {
	Load(ctx context.Context) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) error

func (f LoaderFunc) Load(ctx context.Context) error {
	return f(ctx)
}

// maxScriptBytes caps how much of a provider resource is read.
const maxScriptBytes = 4 << 20

// HTTPLoader fetches a provider resource (SDK script or discovery document)
// and treats a non-empty 2xx body as loaded.
type HTTPLoader struct {
	Client *http.Client
	URL    string
	// OnLoaded receives the body when set, e.g. to parse a discovery document.
	OnLoaded func(body []byte) error
}

func (l HTTPLoader) Load(ctx context.Context) error {
	if l.URL == "" {
		return fmt.Errorf("provider resource url is empty")
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return fmt.Errorf("build provider resource request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch provider resource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch provider resource: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes))
	if err != nil {
		return fmt.Errorf("read provider resource: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("provider resource is empty")
	}
	if l.OnLoaded != nil {
		return l.OnLoaded(body)
	}
	return nil
}
