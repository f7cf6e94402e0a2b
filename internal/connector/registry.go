// Package connector implements the ingestion adapters: one per source fetch
// method, dispatched through a registry keyed by the method name.
package connector

import (
	"fmt"
	"net/http"
	"time"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// ErrUnknownFetchMethod marks a misconfigured source. Unlike transport and
// parse failures, this is surfaced to the caller: it needs operator attention.
var ErrUnknownFetchMethod = fmt.Errorf("unknown fetch method")

// Registry keeps a mapping from fetch methods to their connectors.
type Registry struct {
	connectors map[domain.FetchMethod]ports.Connector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{connectors: map[domain.FetchMethod]ports.Connector{}}
}

// Register adds or replaces a connector implementation.
func (r *Registry) Register(c ports.Connector) {
	if r.connectors == nil {
		r.connectors = map[domain.FetchMethod]ports.Connector{}
	}
	r.connectors[c.Method()] = c
}

// Resolve returns the connector for a fetch method or ErrUnknownFetchMethod.
func (r *Registry) Resolve(method domain.FetchMethod) (ports.Connector, error) {
	if c, ok := r.connectors[method]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFetchMethod, method)
}

// NewHTTPClient builds the pooled outbound client shared by all connectors.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
