package speech

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrBackendNotFound is returned when a backend is not registered.
	ErrBackendNotFound = errors.New("speech backend not found")
	// ErrBackendExists is returned when registering a name twice.
	ErrBackendExists = errors.New("speech backend already registered")
)

// Registry holds the synthesis backends available to the sequencer, keyed by
// backend name. The first backend registered becomes the default until
// SetDefault says otherwise.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Synthesizer
	def      string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Synthesizer),
	}
}

// Register adds a backend under its own Name.
func (r *Registry) Register(backend Synthesizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := backend.Name()
	if _, exists := r.backends[name]; exists {
		return ErrBackendExists
	}

	r.backends[name] = backend
	if r.def == "" {
		r.def = name
	}
	return nil
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Synthesizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, exists := r.backends[name]
	if !exists {
		return nil, ErrBackendNotFound
	}
	return backend, nil
}

// Default returns the default backend, or ErrBackendNotFound while the
// registry is empty.
func (r *Registry) Default() (Synthesizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.def == "" {
		return nil, ErrBackendNotFound
	}
	return r.backends[r.def], nil
}

// SetDefault makes the named backend the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[name]; !exists {
		return ErrBackendNotFound
	}
	r.def = name
	return nil
}

// List returns the registered backend names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
