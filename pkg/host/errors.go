package host

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateModule is returned when a module name is already registered
	ErrDuplicateModule = errors.New("module already registered")

	// ErrUnknownModule is returned when no admitted module has the given name
	ErrUnknownModule = errors.New("unknown module")

	// ErrNoInstallTarget is returned when no module accepts a dropped file
	ErrNoInstallTarget = errors.New("no module accepts this file")

	// ErrModuleDisabled is reported for modules skipped by configuration
	ErrModuleDisabled = errors.New("module disabled by configuration")
)

// InitError reports a module whose Initialize failed. The module is discarded.
type InitError struct {
	Module   string
	Location string
	Err      error
}

func (e *InitError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("initialize %s: %v", e.Module, e.Err)
	}
	return fmt.Sprintf("initialize %s (%s): %v", e.Module, e.Location, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
