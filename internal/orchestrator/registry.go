package orchestrator

import "sync"

// RunRegistry is the in-memory single-flight index over active runs. It is a
// cache over the scraper_jobs table, not a second source of truth: on process
// restart it is rebuilt from rows still marked active (after orphan
// reconciliation has failed them, it starts empty).
type RunRegistry struct {
	mu     sync.Mutex
	active map[string]string // scraper name -> run id
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{active: make(map[string]string)}
}

// Acquire claims the single-flight slot for a scraper. It reports false, with
// the blocking run's id, when one is already in flight.
func (r *RunRegistry) Acquire(scraperName, runID string) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.active[scraperName]; ok {
		return false, current
	}
	r.active[scraperName] = runID
	return true, ""
}

// Release frees the slot, but only if it is still held by runID.
func (r *RunRegistry) Release(scraperName, runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[scraperName] == runID {
		delete(r.active, scraperName)
	}
}

// FindActiveRun returns the in-flight run id for a scraper, if any.
func (r *RunRegistry) FindActiveRun(scraperName string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.active[scraperName]
	return id, ok
}

// Hydrate seeds the registry from persisted active runs at startup.
func (r *RunRegistry) Hydrate(active map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, id := range active {
		r.active[name] = id
	}
}
