package plugins

import "errors"

var (
	// ErrPluginNotFound is returned for unknown plugin IDs
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrPluginDisabled is returned when instantiating a disabled plugin
	ErrPluginDisabled = errors.New("plugin disabled")

	// ErrPluginStale is returned when a plugin's location no longer validates
	ErrPluginStale = errors.New("plugin location is no longer valid")

	// ErrModuleUnavailable is returned when a plugin's module is not loaded
	ErrModuleUnavailable = errors.New("module unavailable")
)
