package module

import "fmt"

// EntrySymbol is the exported symbol the loader resolves in an external module.
const EntrySymbol = "ModuleEntry"

// Identity describes a module or plugin
type Identity interface {
	Path() string
	Name() string
	Vendor() string
	Version() string
	Description() string
}

// Ident is a plain Identity value, meant to be embedded
type Ident struct {
	IdentPath        string `yaml:"path,omitempty" json:"path,omitempty"`
	IdentName        string `yaml:"name" json:"name"`
	IdentVendor      string `yaml:"vendor,omitempty" json:"vendor,omitempty"`
	IdentVersion     string `yaml:"version,omitempty" json:"version,omitempty"`
	IdentDescription string `yaml:"description,omitempty" json:"description,omitempty"`
}

func (i Ident) Path() string        { return i.IdentPath }
func (i Ident) Name() string        { return i.IdentName }
func (i Ident) Vendor() string      { return i.IdentVendor }
func (i Ident) Version() string     { return i.IdentVersion }
func (i Ident) Description() string { return i.IdentDescription }

// IdentOf copies any Identity into an Ident
func IdentOf(id Identity) Ident {
	if id == nil {
		return Ident{}
	}
	return Ident{
		IdentPath:        id.Path(),
		IdentName:        id.Name(),
		IdentVendor:      id.Vendor(),
		IdentVersion:     id.Version(),
		IdentDescription: id.Description(),
	}
}

// Plugin is a capability provided by a module. Its concrete type is opaque to
// the host; Kind is a free-form category such as "effect" or "importer".
type Plugin interface {
	Identity
	Kind() string
}

// PluginID identifies a registered plugin. The empty ID means "not registered".
type PluginID string

// Registered reports whether the ID denotes a registered plugin
func (id PluginID) Registered() bool {
	return id != ""
}

// RegistrationCallback is invoked by a module once per discovered plugin and
// returns the identity assigned to it.
type RegistrationCallback func(m Module, p Plugin) PluginID

// DefaultRegistrationCallback always succeeds. The returned ID is the plugin's
// path, or its name when the path is empty.
func DefaultRegistrationCallback(m Module, p Plugin) PluginID {
	if p == nil {
		return ""
	}
	if path := p.Path(); path != "" {
		return PluginID(path)
	}
	return PluginID(p.Name())
}

// CallbackOrDefault returns cb, or DefaultRegistrationCallback when cb is nil
func CallbackOrDefault(cb RegistrationCallback) RegistrationCallback {
	if cb == nil {
		return DefaultRegistrationCallback
	}
	return cb
}

// Manager is the only view of the host a module gets. Modules may register
// themselves; they can never read what else is registered.
type Manager interface {
	RegisterModule(m Module)
}

// EntryPoint constructs a module instance. Builtins receive an empty location;
// externals receive the location they were loaded from. A nil result is a
// load failure.
type EntryPoint func(mgr Manager, location string) Module

// PluginManager is the host-side collaborator modules register plugins with
type PluginManager interface {
	// RegisterPlugin records a plugin offered by m and returns its ID
	RegisterPlugin(m Module, p Plugin) PluginID

	// IsPluginRegistered reports whether a plugin is already known at location
	IsPluginRegistered(location string) bool

	// FindFilesInPathList returns files under dirs matching a glob pattern
	FindFilesInPathList(pattern string, dirs []string, recursive bool) []string
}

// State is the lifecycle state of a module instance
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CanTransition reports whether moving from s to next is a legal step.
// States only move forward, one step at a time.
func (s State) CanTransition(next State) bool {
	return next == s+1 && next <= StateTerminated
}
