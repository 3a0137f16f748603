package module

// Module is implemented by every plugin-providing unit, builtin or external.
//
// Modules need not be safe for concurrent use; the host never calls two
// operations on the same instance at the same time. Failures are returned,
// never raised.
type Module interface {
	Identity

	// Initialize performs one-time setup. A non-nil error discards the module.
	Initialize() error

	// Terminate releases resources. Called at most once, only after a
	// successful Initialize.
	Terminate()

	// FileExtensions lists the extensions of files installable by
	// drag-and-drop. Empty disables it; an element "" accepts any file.
	FileExtensions() []string

	// InstallPath is where dropped files are copied. Empty disables
	// drag-and-drop regardless of FileExtensions.
	InstallPath() string

	// AutoRegisterPlugins registers a fixed, self-known set of plugins.
	AutoRegisterPlugins(pm PluginManager) error

	// FindPluginPaths enumerates candidate locations without registering
	// anything. Locations are module-defined and opaque to the host.
	FindPluginPaths(pm PluginManager) []string

	// DiscoverPluginsAtPath offers every plugin found at location to cb and
	// returns how many were registered. The error may be non-nil even when
	// the count is positive, and need not mention location. A nil cb means
	// DefaultRegistrationCallback.
	DiscoverPluginsAtPath(location string, cb RegistrationCallback) (int, error)

	// IsPluginValid reports whether location still resolves to a usable
	// plugin. fast permits a cheap heuristic.
	IsPluginValid(location string, fast bool) bool

	// CreateInstance constructs a plugin. The caller owns the result and must
	// hand it back to DeleteInstance on this same module.
	CreateInstance(location string) (Plugin, error)

	// DeleteInstance releases an instance this module created. Instances
	// from other modules are rejected with ErrForeignInstance.
	DeleteInstance(instance Plugin) error
}
