package scrape

import (
	"sort"
	"sync"
)

// Registry holds the known adapters by name. It is built once at startup and
// injected into the orchestrator; there is no package-level registry.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byName: make(map[string]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an adapter under its Name().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	r.byName[a.Name()] = a
	r.mu.Unlock()
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
