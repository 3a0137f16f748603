package module

import (
	"fmt"
	"sync"
)

// Handle owns a plugin instance on behalf of the caller. The instance can only
// be released through the module that created it.
type Handle struct {
	owner    Module
	location string

	mu       sync.Mutex
	instance Plugin
}

// Acquire creates an instance at location through owner
func Acquire(owner Module, location string) (*Handle, error) {
	if owner == nil {
		return nil, fmt.Errorf("cannot acquire instance from nil module")
	}

	instance, err := owner.CreateInstance(location)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance at %s: %w", location, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("failed to create instance at %s: %w", location, ErrNilInstance)
	}

	return &Handle{
		owner:    owner,
		location: location,
		instance: instance,
	}, nil
}

// Owner returns the module that created the instance
func (h *Handle) Owner() Module {
	return h.owner
}

// Location returns the location the instance was created from
func (h *Handle) Location() string {
	return h.location
}

// Plugin returns the instance, or nil once released
func (h *Handle) Plugin() Plugin {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.instance
}

// Released reports whether Release has succeeded
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.instance == nil
}

// Release hands the instance back to its owner. Only the first call reaches
// the module; later calls return ErrInstanceReleased. If the owner refuses the
// instance the handle keeps it so the error can be acted on.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.instance == nil {
		return ErrInstanceReleased
	}

	if err := h.owner.DeleteInstance(h.instance); err != nil {
		return fmt.Errorf("failed to release instance at %s: %w", h.location, err)
	}

	h.instance = nil
	return nil
}
