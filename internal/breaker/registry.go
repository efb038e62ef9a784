package breaker

import (
	"sync"
	"time"
)

// Registry hands out one breaker per dependency name with shared settings.
// Constructed once at process start and injected wherever external calls are made.
type Registry struct {
	failureThreshold int
	window           time.Duration
	cooldown         time.Duration

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry with the given default breaker settings.
func NewRegistry(failureThreshold int, window, cooldown time.Duration) *Registry {
	return &Registry{
		failureThreshold: failureThreshold,
		window:           window,
		cooldown:         cooldown,
		breakers:         make(map[string]*Breaker),
	}
}

// Get returns the breaker for a dependency name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.failureThreshold, r.window, r.cooldown)
	r.breakers[name] = b
	return b
}

// States reports each registered breaker's current state by name.
func (r *Registry) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make(map[string]string, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State().String()
	}
	return states
}
