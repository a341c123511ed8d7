package iam

import (
	"sort"
	"sync"
)

// ScopeRegistry accumulates every scope name referenced by a gate
// construction over the lifetime of the process. The bootstrap consumes
// it to discover "all scopes that exist" without a separate manifest.
//
// The registry is an explicit, injectable object: it is created once at
// application wiring time and passed by reference into every gate
// constructor and into the bootstrap routine. Registration is idempotent
// and safe for concurrent use.
type ScopeRegistry struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewScopeRegistry creates an empty scope registry.
func NewScopeRegistry() *ScopeRegistry {
	return &ScopeRegistry{names: make(map[string]struct{})}
}

// Register records a scope name. Duplicate registrations are no-ops.
func (r *ScopeRegistry) Register(name string) {
	if name == "" {
		return
	}
	r.mu.Lock()
	r.names[name] = struct{}{}
	r.mu.Unlock()
}

// Names returns a sorted copy of all registered scope names.
func (r *ScopeRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered scope names.
func (r *ScopeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
