// Package provider adapts third-party identity providers to a common
// lifecycle: load the provider library once, initialize it once, then run
// interactive credential requests that end in a normalized AuthAttempt.
package provider

import (
	"context"
	"sort"

	"gatehouse/internal/auth/models"
	dErrors "gatehouse/pkg/domain-errors"
)

// Callbacks receive the outcome of a credential request. Exactly one of them
// fires per request.
type Callbacks struct {
	OnAttempt func(attempt models.AuthAttempt)
	OnError   func(err error)
}

// Bridge is one identity provider.
type Bridge interface {
	Name() models.ProviderName
	// EnsureReady loads the provider library at most once across callers.
	EnsureReady(ctx context.Context) error
	// Initialize configures the library once and registers cb for results.
	// Calling it again replaces cb without re-initializing.
	Initialize(cb Callbacks) error
	// RequestCredential starts an interactive flow and returns immediately.
	// The result arrives through the registered Callbacks.
	RequestCredential(ctx context.Context)
	State() HandleState
	// Close drops results of requests still in flight.
	Close()
}

// Registry looks bridges up by provider name.
type Registry struct {
	bridges map[models.ProviderName]Bridge
}

func NewRegistry(bridges ...Bridge) *Registry {
	r := &Registry{bridges: make(map[models.ProviderName]Bridge, len(bridges))}
	for _, b := range bridges {
		if b != nil {
			r.bridges[b.Name()] = b
		}
	}
	return r
}

// Get returns the bridge for name.
func (r *Registry) Get(name models.ProviderName) (Bridge, error) {
	b, ok := r.bridges[name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Unknown sign-in provider: "+name.String())
	}
	return b, nil
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []models.ProviderName {
	names := make([]models.ProviderName, 0, len(r.bridges))
	for name := range r.bridges {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Close closes every registered bridge.
func (r *Registry) Close() {
	for _, b := range r.bridges {
		b.Close()
	}
}
