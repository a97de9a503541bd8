package aiclient

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrClientNotFound is returned when a named client is absent from the
// registry.
var ErrClientNotFound = errors.New("aiclient: client not found")

// Registry holds named Clients with thread-safe access and hot-reload
// support: Register/Unregister/Get/List over a mutex-guarded map.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
		logger:  slog.Default(),
	}
}

// SetLogger overrides the registry's logger.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds or replaces a client by name.
func (r *Registry) Register(client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.Name()] = client
	r.logger.Info("registered AI client", "name", client.Name())
}

// Unregister removes a client by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, name)
	r.logger.Info("unregistered AI client", "name", name)
}

// Get returns the named client.
func (r *Registry) Get(name string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// Default returns the registry's sole client when exactly one is
// registered, the common case for a single-provider book run.
func (r *Registry) Default() (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.clients) == 1 {
		for _, c := range r.clients {
			return c, nil
		}
	}
	return nil, ErrClientNotFound
}

// List returns all registered client names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}
