package module

import "errors"

var (
	// ErrNotInitialized is returned when an operation needs an initialized module
	ErrNotInitialized = errors.New("module not initialized")

	// ErrTerminated is returned for any operation on a terminated module
	ErrTerminated = errors.New("module terminated")

	// ErrAlreadyInitialized is returned when Initialize is attempted twice
	ErrAlreadyInitialized = errors.New("module already initialized")

	// ErrForeignInstance is returned by DeleteInstance for instances the module did not create
	ErrForeignInstance = errors.New("instance not created by this module")

	// ErrInstanceReleased is returned when a handle is released twice
	ErrInstanceReleased = errors.New("instance already released")

	// ErrNilInstance is returned when CreateInstance yields no instance and no error
	ErrNilInstance = errors.New("module returned nil instance")

	// ErrUnknownLocation may be returned by modules for locations they cannot interpret
	ErrUnknownLocation = errors.New("unknown plugin location")
)
