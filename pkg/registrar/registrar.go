package registrar

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/platinummonkey/modhost/pkg/module"
)

var (
	// ErrDuplicateEntry is returned when a name is registered twice
	ErrDuplicateEntry = errors.New("entry point already registered")

	// ErrNilEntry is returned when registering a nil entry point
	ErrNilEntry = errors.New("nil entry point")

	// ErrEmptyName is returned when registering without a name
	ErrEmptyName = errors.New("entry point name is required")

	// ErrDrained is returned when registering after the registrar was drained
	ErrDrained = errors.New("registrar already drained")
)

// Pending is an entry point waiting to be invoked
type Pending struct {
	Name  string
	Entry module.EntryPoint
}

// Registrar holds pending builtin entry points until the host drains them
type Registrar struct {
	mu      sync.Mutex
	entries map[string]module.EntryPoint
	drained bool
}

// New creates an empty registrar
func New() *Registrar {
	return &Registrar{
		entries: make(map[string]module.EntryPoint),
	}
}

// Register adds an entry point under name
func (r *Registrar) Register(name string, entry module.EntryPoint) error {
	if name == "" {
		return ErrEmptyName
	}
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrNilEntry, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.drained {
		return fmt.Errorf("%w: cannot register %s", ErrDrained, name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}

	r.entries[name] = entry
	return nil
}

// Pending returns the names waiting to be drained, sorted
func (r *Registrar) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Drained reports whether Drain has been called
func (r *Registrar) Drained() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drained
}

// Drain closes registration and hands out every pending entry point once.
// Later calls return nil. The result is sorted by name; callers must not rely
// on any particular order.
func (r *Registrar) Drain() []Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drained = true
	if len(r.entries) == 0 {
		return nil
	}

	result := make([]Pending, 0, len(r.entries))
	for name, entry := range r.entries {
		result = append(result, Pending{Name: name, Entry: entry})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	r.entries = make(map[string]module.EntryPoint)
	return result
}

// Default is the process-wide registrar builtin modules declare themselves to
var Default = New()

// Register adds an entry point to Default
func Register(name string, entry module.EntryPoint) error {
	return Default.Register(name, entry)
}

// MustRegister is Register for use from init(). It panics on error, so a
// duplicate builtin name fails the binary at startup.
func MustRegister(name string, entry module.EntryPoint) {
	if err := Register(name, entry); err != nil {
		panic(fmt.Sprintf("registrar: %v", err))
	}
}
