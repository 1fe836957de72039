package services

import (
	"fmt"
	"sync"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

type registration struct {
	provider Provider
	enabled  bool
}

// Registry maps namespaces to provider adapters and filters them by capability.
//
// Lookups preserve registration order. Capability absence is a normal negative result, never an error.
type Registry struct {
	mu       sync.RWMutex
	order    []*registration
	byNS     map[string]*registration
	fallback string
}

// RegisterOption adjusts how a provider is registered.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	isDefault bool
	disabled  bool
}

// AsDefault flags the provider as the one returned by [Registry.Default].
func AsDefault() RegisterOption {
	return func(c *registerConfig) { c.isDefault = true }
}

// Disabled registers the provider administratively disabled.
func Disabled() RegisterOption {
	return func(c *registerConfig) { c.disabled = true }
}

// URLMatch is a provider link resolved back to its namespace and id.
type URLMatch struct {
	Namespace string            `json:"namespace"`
	ID        string            `json:"id"`
	Entity    models.EntityType `json:"entity"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byNS: make(map[string]*registration)}
}

// Register adds p. It fails when the namespace is empty or taken, or when p declares a capability whose
// interface it does not implement.
func (r *Registry) Register(p Provider, opts ...RegisterOption) error {
	ns := p.Namespace()
	if ns == "" {
		return fmt.Errorf("%w: provider namespace is empty", shared.ErrInvalidInput)
	}
	for _, c := range p.Capabilities().List() {
		if !implements(p, c) {
			return fmt.Errorf("%w: %s declares %s without implementing it", shared.ErrUnsupportedCapability, ns, c)
		}
	}

	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNS[ns]; exists {
		return fmt.Errorf("%w: provider %s already registered", shared.ErrInvalidInput, ns)
	}
	reg := &registration{provider: p, enabled: !cfg.disabled}
	r.order = append(r.order, reg)
	r.byNS[ns] = reg
	if cfg.isDefault {
		r.fallback = ns
	}
	return nil
}

// Resolve returns the enabled provider registered under ns that supports every capability in caps.
func (r *Registry) Resolve(ns string, caps ...Capability) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byNS[ns]
	if !ok || !reg.enabled || !reg.provider.Capabilities().HasAll(caps...) {
		return nil, false
	}
	return reg.provider, true
}

// Get returns the provider registered under ns, enabled or not.
func (r *Registry) Get(ns string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byNS[ns]
	if !ok {
		return nil, false
	}
	return reg.provider, true
}

// ResolveProvider applies the same checks as [Registry.Resolve] to an adapter value. A disabled namespace
// rejects any adapter claiming it. Adapters that were never registered are treated as enabled.
func (r *Registry) ResolveProvider(p Provider, caps ...Capability) (Provider, bool) {
	if p == nil {
		return nil, false
	}
	r.mu.RLock()
	reg, registered := r.byNS[p.Namespace()]
	r.mu.RUnlock()

	if registered && !reg.enabled {
		return nil, false
	}
	if !p.Capabilities().HasAll(caps...) {
		return nil, false
	}
	return p, true
}

// Lookup resolves ns with caps and asserts the provider to T in one step.
func Lookup[T any](r *Registry, ns string, caps ...Capability) (T, bool) {
	var zero T
	p, ok := r.Resolve(ns, caps...)
	if !ok {
		return zero, false
	}
	t, ok := p.(T)
	return t, ok
}

// List returns every enabled provider supporting caps, in registration order.
func (r *Registry) List(caps ...Capability) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider
	for _, reg := range r.order {
		if reg.enabled && reg.provider.Capabilities().HasAll(caps...) {
			out = append(out, reg.provider)
		}
	}
	return out
}

// ResolveURL tests raw against each URL-capable provider in registration order. The first match wins,
// so providers must not claim overlapping URL patterns. Disabled providers still resolve so callers can
// report them as disabled rather than unknown.
func (r *Registry) ResolveURL(raw string) (URLMatch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.order {
		codec, ok := reg.provider.(URLCodec)
		if !ok || !reg.provider.Capabilities().Has(CapURLs) {
			continue
		}
		if entity, id, ok := codec.ParseURL(raw); ok {
			return URLMatch{Namespace: reg.provider.Namespace(), ID: id, Entity: entity}, true
		}
	}
	return URLMatch{}, false
}

// Default returns the provider flagged with [AsDefault], else the first registered.
func (r *Registry) Default() (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if reg, ok := r.byNS[r.fallback]; ok {
		return reg.provider, true
	}
	if len(r.order) > 0 {
		return r.order[0].provider, true
	}
	return nil, false
}

// SetEnabled toggles a registered provider.
func (r *Registry) SetEnabled(ns string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byNS[ns]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownProvider, ns)
	}
	reg.enabled = enabled
	return nil
}

// Enabled reports whether ns is registered and enabled.
func (r *Registry) Enabled(ns string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byNS[ns]
	return ok && reg.enabled
}

// Namespaces lists every registered namespace, enabled or not, in registration order.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.order))
	for _, reg := range r.order {
		out = append(out, reg.provider.Namespace())
	}
	return out
}

// Require is [Registry.Resolve] with a descriptive error for caller input mistakes.
func (r *Registry) Require(ns string, caps ...Capability) (Provider, error) {
	r.mu.RLock()
	reg, ok := r.byNS[ns]
	r.mu.RUnlock()

	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownProvider, ns)
	case !reg.enabled:
		return nil, fmt.Errorf("%w: %s", shared.ErrProviderDisabled, ns)
	}
	for _, c := range caps {
		if !reg.provider.Capabilities().Has(c) {
			return nil, fmt.Errorf("%w: %s does not support %s", shared.ErrUnsupportedCapability, ns, c)
		}
	}
	return reg.provider, nil
}
