// Package static is a module with a fixed set of plugins compiled into it.
// It registers them all through AutoRegisterPlugins and has nothing to
// discover on disk.
package static

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/registrar"
)

// Name is the module name
const Name = "static"

// LocationPrefix prefixes the location of every static plugin
const LocationPrefix = "static:"

func init() {
	registrar.Declare(Name, Entry)
}

// Plugin is one of the built-in plugins
type Plugin struct {
	module.Ident
	PluginKind string
}

// Kind implements module.Plugin
func (p *Plugin) Kind() string { return p.PluginKind }

// Definition describes a built-in plugin
type Definition struct {
	Name        string
	Kind        string
	Description string
}

// Catalog is the default plugin set
var Catalog = []Definition{
	{Name: "gain", Kind: "effect", Description: "Scales the signal level"},
	{Name: "fade-in", Kind: "effect", Description: "Linear fade from silence"},
	{Name: "fade-out", Kind: "effect", Description: "Linear fade to silence"},
	{Name: "silence", Kind: "generator", Description: "Generates silence"},
	{Name: "raw", Kind: "importer", Description: "Imports headerless sample data"},
}

// Module serves a fixed plugin catalog
type Module struct {
	module.Ident

	defs map[string]Definition

	mu        sync.Mutex
	instances map[*Plugin]struct{}
}

var _ module.Module = (*Module)(nil)

// New creates a module serving the given plugin definitions
func New(defs []Definition) *Module {
	m := &Module{
		Ident: module.Ident{
			IdentName:        Name,
			IdentVendor:      "modhost",
			IdentVersion:     "1.0.0",
			IdentDescription: "Built-in plugins",
		},
		defs:      make(map[string]Definition, len(defs)),
		instances: make(map[*Plugin]struct{}),
	}
	for _, d := range defs {
		m.defs[d.Name] = d
	}
	return m
}

// Entry is the module's entry point
func Entry(mgr module.Manager, location string) module.Module {
	m := New(Catalog)
	m.IdentPath = location
	mgr.RegisterModule(m)
	return m
}

// Location returns the location of the static plugin called name
func Location(name string) string {
	return LocationPrefix + name
}

func (m *Module) plugin(s Definition) *Plugin {
	return &Plugin{
		Ident: module.Ident{
			IdentPath:        Location(s.Name),
			IdentName:        s.Name,
			IdentVendor:      m.Vendor(),
			IdentVersion:     m.Version(),
			IdentDescription: s.Description,
		},
		PluginKind: s.Kind,
	}
}

func (m *Module) lookup(location string) (Definition, bool) {
	if !strings.HasPrefix(location, LocationPrefix) {
		return Definition{}, false
	}
	s, ok := m.defs[strings.TrimPrefix(location, LocationPrefix)]
	return s, ok
}

func (m *Module) Initialize() error {
	if len(m.defs) == 0 {
		return errors.New("empty plugin catalog")
	}
	return nil
}

func (m *Module) Terminate() {
	m.mu.Lock()
	m.instances = make(map[*Plugin]struct{})
	m.mu.Unlock()
}

func (m *Module) FileExtensions() []string { return nil }
func (m *Module) InstallPath() string      { return "" }

// AutoRegisterPlugins registers the whole catalog, in name order
func (m *Module) AutoRegisterPlugins(pm module.PluginManager) error {
	names := make([]string, 0, len(m.defs))
	for name := range m.defs {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if !pm.RegisterPlugin(m, m.plugin(m.defs[name])).Registered() {
			errs = append(errs, fmt.Errorf("plugin %s was not registered", name))
		}
	}
	return errors.Join(errs...)
}

// FindPluginPaths returns nothing: static plugins are registered automatically
func (m *Module) FindPluginPaths(pm module.PluginManager) []string {
	return nil
}

// DiscoverPluginsAtPath accepts only static:<name> locations of the catalog
func (m *Module) DiscoverPluginsAtPath(location string, cb module.RegistrationCallback) (int, error) {
	s, ok := m.lookup(location)
	if !ok {
		return 0, fmt.Errorf("%w: %s", module.ErrUnknownLocation, location)
	}
	if module.CallbackOrDefault(cb)(m, m.plugin(s)).Registered() {
		return 1, nil
	}
	return 0, nil
}

func (m *Module) IsPluginValid(location string, fast bool) bool {
	_, ok := m.lookup(location)
	return ok
}

func (m *Module) CreateInstance(location string) (module.Plugin, error) {
	s, ok := m.lookup(location)
	if !ok {
		return nil, fmt.Errorf("%w: %s", module.ErrUnknownLocation, location)
	}

	p := m.plugin(s)
	m.mu.Lock()
	m.instances[p] = struct{}{}
	m.mu.Unlock()
	return p, nil
}

func (m *Module) DeleteInstance(instance module.Plugin) error {
	p, ok := instance.(*Plugin)
	if !ok {
		return module.ErrForeignInstance
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, owned := m.instances[p]; !owned {
		return module.ErrForeignInstance
	}
	delete(m.instances, p)
	return nil
}
