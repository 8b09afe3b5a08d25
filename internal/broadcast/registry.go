package broadcast

import "sync"

// Registry tracks open subscribers.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

// NewRegistry creates an empty subscriber registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]Subscriber)}
}

// Add registers sub and returns the new count.
func (r *Registry) Add(sub Subscriber) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs[sub.ID()] = sub
	return len(r.subs)
}

// Remove unregisters id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) (Subscriber, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	return sub, ok
}

// Snapshot copies the current set so callers can iterate without holding
// the lock while subscribers come and go.
func (r *Registry) Snapshot() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	return out
}

// Count returns the number of registered subscribers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subs)
}

// Drain removes and returns every subscriber.
func (r *Registry) Drain() []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	r.subs = make(map[string]Subscriber)
	return out
}
