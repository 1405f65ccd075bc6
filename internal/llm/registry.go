package llm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// Registry resolves provider keys to clients. A provider can be known but
// have no client when its credentials are not configured.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	known   map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
		known:   make(map[string]bool),
	}
}

// Register binds a configured client to a provider key.
func (r *Registry) Register(key string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known[key] = true
	r.clients[key] = c
}

// Declare records a supported provider for which no credentials exist.
func (r *Registry) Declare(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known[key] = true
}

// Client returns the client for key.
func (r *Registry) Client(key string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[key]; ok {
		return c, nil
	}
	if r.known[key] {
		return nil, fmt.Errorf("%w: provider %q", ErrMissingCredentials, key)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, key)
}

// Validate checks that every enabled member resolves to a client.
func (r *Registry) Validate(members []domain.AgentIdentity) error {
	var errs []error
	for _, m := range members {
		if !m.Enabled {
			continue
		}
		if _, err := r.Client(m.ProviderKey); err != nil {
			errs = append(errs, fmt.Errorf("member %s: %w", m.ID, err))
		}
	}
	return errors.Join(errs...)
}
