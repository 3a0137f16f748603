package host

import (
	"fmt"
	"sync"
)

// Registry maps module names to admitted modules. It only grows, and only the
// host mutates it.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Entry
	order  []*Entry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Entry),
	}
}

func (r *Registry) add(e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, name)
	}

	r.byName[name] = e
	r.order = append(r.order, e)
	return nil
}

// Get retrieves a module by name
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	return e, ok
}

// List returns all modules in admission order
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Entry, len(r.order))
	copy(result, r.order)
	return result
}

// Count returns the number of admitted modules
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}
