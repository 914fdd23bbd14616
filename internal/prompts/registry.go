// Package prompts maps domain names to the system prompts used by the
// generator, critic and judge roles.
package prompts

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Prompts holds the role system prompts for one domain.
type Prompts struct {
	Generator string `json:"generator"`
	Critic    string `json:"critic"`
	Judge     string `json:"judge"`
}

// Registry is a concurrency-safe domain → Prompts map. The general domain
// always exists and serves as the fallback for unknown domains.
type Registry struct {
	mu      sync.RWMutex
	domains map[string]Prompts
}

// NewRegistry creates a Registry seeded with the built-in domains.
func NewRegistry() *Registry {
	return &Registry{domains: builtins()}
}

// Get returns the prompts for domain, falling back to general.
func (r *Registry) Get(domain string) Prompts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.domains[normalize(domain)]; ok {
		return p
	}
	return r.domains[DomainGeneral]
}

// Lookup returns the prompts registered for domain without fallback.
func (r *Registry) Lookup(domain string) (Prompts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.domains[normalize(domain)]
	if !ok {
		return Prompts{}, fmt.Errorf("%w: %s", ErrNotFound, domain)
	}
	return p, nil
}

// Register adds or replaces the prompts for domain. Empty fields inherit the
// general domain's prompt.
func (r *Registry) Register(domain string, p Prompts) error {
	name := normalize(domain)
	if name == "" {
		return ErrInvalidDomain
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	general := r.domains[DomainGeneral]
	if p.Generator == "" {
		p.Generator = general.Generator
	}
	if p.Critic == "" {
		p.Critic = general.Critic
	}
	if p.Judge == "" {
		p.Judge = general.Judge
	}

	r.domains[name] = p
	return nil
}

// Remove deletes domain. The general domain cannot be removed.
func (r *Registry) Remove(domain string) error {
	name := normalize(domain)
	if name == DomainGeneral {
		return ErrBuiltinDomain
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.domains[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, domain)
	}
	delete(r.domains, name)
	return nil
}

// Has reports whether domain is registered.
func (r *Registry) Has(domain string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.domains[normalize(domain)]
	return ok
}

// List returns the registered domain names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.domains))
	for name := range r.domains {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func normalize(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
