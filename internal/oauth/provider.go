package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/identity"
)

// ErrExchange is returned when the provider rejects a code or its
// identity payload is unusable.
var ErrExchange = errors.New("identity provider exchange failed")

// Identity is the provider-side view of a user after a successful code exchange.
type Identity struct {
	Provider       identity.Provider
	ProviderUserID string
	DisplayName    string
	Email          string
}

//go:generate mockgen -source=provider.go -destination=mock_provider.go -package=oauth

// IdentityProvider runs the authorization code flow against one provider.
type IdentityProvider interface {
	Name() identity.Provider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Registry holds the configured identity providers keyed by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[identity.Provider]IdentityProvider
}

// NewRegistry creates a registry preloaded with providers.
func NewRegistry(providers ...IdentityProvider) *Registry {
	r := &Registry{providers: make(map[identity.Provider]IdentityProvider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p IdentityProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get resolves a provider by name or alias.
func (r *Registry) Get(name string) (IdentityProvider, error) {
	p, err := identity.ParseProvider(name)
	if err != nil {
		return nil, fmt.Errorf("%w: provider %q", common.ErrNotFound, name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[p]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q is not configured", common.ErrNotFound, name)
	}
	return provider, nil
}

// Names lists the configured providers in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for p := range r.providers {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// NewState returns a random value for the OAuth state parameter.
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
