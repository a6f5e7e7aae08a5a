package workspace

import (
	"context"
	"log"
	"sort"
	"sync"
)

// Registry maps remote identifiers to the unit that should be pulled when
// that identifier arrives on the trigger channel.
//
// The registry also remembers every unit it was given, including units
// with no identifier routed to them.
type Registry struct {
	mu      sync.RWMutex
	units   map[string]*Unit
	members map[*Unit]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		units:   make(map[string]*Unit),
		members: make(map[*Unit]bool),
	}
}

// Add routes id to u, replacing any previous mapping.
// Returns the unit previously registered for id, if any.
func (r *Registry) Add(id string, u *Unit) *Unit {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.units[id]
	r.units[id] = u
	r.members[u] = true
	return prev
}

// Track adds u to the registry without routing any identifier to it.
func (r *Registry) Track(u *Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[u] = true
}

// Lookup returns the unit registered for id.
func (r *Registry) Lookup(id string) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[id]
	return u, ok
}

// IDs returns the registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.units))
	for id := range r.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Units returns every unit known to the registry, sorted by path.
func (r *Registry) Units() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	units := make([]*Unit, 0, len(r.members))
	for u := range r.members {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Path() < units[j].Path() })
	return units
}

// Len returns the number of registered identifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// Build lists the remotes of every unit and routes each remote URL to it.
//
// A unit whose remote listing fails is logged and keeps whatever bindings
// were read before the failure; Build itself only fails if ctx is
// cancelled. A unit without remotes is still synced and watched by the
// daemon, it just cannot be triggered externally.
func Build(ctx context.Context, units []*Unit, logger *log.Logger) (*Registry, error) {
	reg := NewRegistry()
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reg.Track(u)
		bound := 0
		for binding, err := range u.Remotes(ctx) {
			if err != nil {
				logger.Printf("Warning: skipping remotes of %s: %v", u.Path(), err)
				break
			}
			if prev := reg.Add(binding.URL, u); prev != nil && prev != u {
				logger.Printf("Warning: %s was routed to %s, now %s", binding.URL, prev.Path(), u.Path())
			}
			bound++
		}
		if bound == 0 {
			logger.Printf("%s has no remotes; it cannot be triggered", u.Path())
		}
	}
	return reg, nil
}
