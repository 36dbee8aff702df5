// Package registry holds the in-memory catalog of service manifests and
// answers dependency queries over them. The registry is the single owner of
// manifest state; the resolver, manager and monitor all hold a reference to
// one shared instance.
package registry

import (
	"sync"

	"flotilla/internal/errors"
	"flotilla/internal/types"
)

// Registry is an in-memory manifest store. Reads are safe under concurrent
// polling; writes (registration, unregistration) are serialized.
type Registry struct {
	mu        sync.RWMutex
	manifests map[string]*types.ServiceManifest
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		manifests: make(map[string]*types.ServiceManifest),
	}
}

// Register inserts or overwrites a manifest. A manifest without an id or
// version is rejected; everything else is accepted as declared.
func (r *Registry) Register(m *types.ServiceManifest) error {
	if m == nil {
		return errors.ManifestValidation("manifest is nil")
	}
	if m.ID == "" {
		return errors.ManifestValidation("missing id")
	}
	if m.Version == "" {
		return errors.ManifestValidation("missing version")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[m.ID] = m.Clone()
	return nil
}

// Unregister removes a manifest and its dependency edges. Removing an absent
// service is not an error.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.manifests, id)
}

// Get returns a copy of the manifest for id
func (r *Registry) Get(id string) (*types.ServiceManifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.manifests[id]
	if !ok {
		return nil, errors.ServiceNotFound(id)
	}
	return m.Clone(), nil
}

// Has reports whether a manifest is registered for id
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.manifests[id]
	return ok
}

// All returns copies of every registered manifest
func (r *Registry) All() []*types.ServiceManifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.ServiceManifest, 0, len(r.manifests))
	for _, m := range r.manifests {
		out = append(out, m.Clone())
	}
	return out
}

// dependencies returns the declared dependency list for id. Unregistered
// services are treated as having no dependencies; no synthetic entries are
// invented for them.
func (r *Registry) dependencies(id string) []string {
	m, ok := r.manifests[id]
	if !ok {
		return nil
	}
	return m.Dependencies
}

// Dependents returns the ids of every service whose dependency list
// transitively includes id. Used for cascade-stop.
func (r *Registry) Dependents(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Reverse edges, then walk outward from id.
	reverse := make(map[string][]string)
	for _, m := range r.manifests {
		for _, dep := range m.Dependencies {
			reverse[dep] = append(reverse[dep], m.ID)
		}
	}

	seen := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range reverse[current] {
			if seen[dependent] {
				continue
			}
			seen[dependent] = true
			out = append(out, dependent)
			queue = append(queue, dependent)
		}
	}
	return out
}
