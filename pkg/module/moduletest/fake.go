// Package moduletest provides a recording Module double for tests.
package moduletest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/platinummonkey/modhost/pkg/module"
)

// Plugin is a minimal module.Plugin
type Plugin struct {
	module.Ident
	PluginKind string
}

// Kind implements module.Plugin
func (p *Plugin) Kind() string {
	return p.PluginKind
}

// NewPlugin builds a plugin at path
func NewPlugin(name, path string) *Plugin {
	return &Plugin{
		Ident:      module.Ident{IdentName: name, IdentPath: path, IdentVersion: "1.0.0"},
		PluginKind: "test",
	}
}

// Location describes what a Fake finds at one location
type Location struct {
	Plugins []module.Plugin
	Invalid []string
}

// Fake is a module.Module that records every call and flags calls made in
// the wrong lifecycle state.
type Fake struct {
	module.Ident

	InitErr     error
	Extensions  []string
	Install     string
	Paths       []string
	Locations   map[string]Location
	AutoPlugins []module.Plugin
	AutoErr     error

	// AttemptUnknown makes DiscoverPluginsAtPath return (0, nil) for
	// locations it does not know instead of rejecting them.
	AttemptUnknown bool

	mu         sync.Mutex
	state      module.State
	calls      []string
	violations []string
	instances  map[*Plugin]struct{}
}

// New returns a Fake named name
func New(name string) *Fake {
	return &Fake{
		Ident:     module.Ident{IdentName: name, IdentVersion: "1.0.0", IdentVendor: "test"},
		Locations: make(map[string]Location),
	}
}

// WithLocation adds k valid plugins and the given invalid entries at location
func (f *Fake) WithLocation(location string, valid int, invalid ...string) *Fake {
	loc := Location{Invalid: invalid}
	for i := 0; i < valid; i++ {
		loc.Plugins = append(loc.Plugins, NewPlugin(fmt.Sprintf("%s-%d", f.IdentName, i), fmt.Sprintf("%s#%d", location, i)))
	}
	f.Locations[location] = loc
	f.Paths = append(f.Paths, location)
	return f
}

func (f *Fake) record(op string, allowed ...module.State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, op)
	for _, s := range allowed {
		if f.state == s {
			return
		}
	}
	f.violations = append(f.violations, fmt.Sprintf("%s called in state %s", op, f.state))
}

// Calls returns the operations invoked so far, in order
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times op was invoked
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// Violations returns contract violations observed so far
func (f *Fake) Violations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.violations...)
}

// State returns the lifecycle state the fake believes it is in
func (f *Fake) State() module.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LiveInstances returns the number of created, not yet deleted, instances
func (f *Fake) LiveInstances() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.instances)
}

func (f *Fake) Initialize() error {
	f.record("Initialize", module.StateCreated)
	if f.InitErr != nil {
		return f.InitErr
	}
	f.mu.Lock()
	f.state = module.StateInitialized
	f.instances = make(map[*Plugin]struct{})
	f.mu.Unlock()
	return nil
}

func (f *Fake) Terminate() {
	f.record("Terminate", module.StateInitialized)
	f.mu.Lock()
	f.state = module.StateTerminated
	f.mu.Unlock()
}

func (f *Fake) FileExtensions() []string {
	f.record("FileExtensions", module.StateCreated, module.StateInitialized)
	return f.Extensions
}

func (f *Fake) InstallPath() string {
	f.record("InstallPath", module.StateCreated, module.StateInitialized)
	return f.Install
}

func (f *Fake) AutoRegisterPlugins(pm module.PluginManager) error {
	f.record("AutoRegisterPlugins", module.StateInitialized)
	for _, p := range f.AutoPlugins {
		if id := pm.RegisterPlugin(f, p); !id.Registered() {
			return fmt.Errorf("plugin %s was not registered", p.Name())
		}
	}
	return f.AutoErr
}

func (f *Fake) FindPluginPaths(pm module.PluginManager) []string {
	f.record("FindPluginPaths", module.StateInitialized)
	return append([]string(nil), f.Paths...)
}

func (f *Fake) DiscoverPluginsAtPath(location string, cb module.RegistrationCallback) (int, error) {
	f.record("DiscoverPluginsAtPath", module.StateInitialized)
	cb = module.CallbackOrDefault(cb)

	loc, ok := f.Locations[location]
	if !ok {
		if f.AttemptUnknown {
			return 0, nil
		}
		return 0, module.ErrUnknownLocation
	}

	count := 0
	for _, p := range loc.Plugins {
		if cb(f, p).Registered() {
			count++
		}
	}

	var errs []error
	for _, msg := range loc.Invalid {
		errs = append(errs, errors.New(msg))
	}
	return count, errors.Join(errs...)
}

func (f *Fake) IsPluginValid(location string, fast bool) bool {
	f.record("IsPluginValid", module.StateInitialized)
	return f.knows(location)
}

func (f *Fake) knows(location string) bool {
	for loc, l := range f.Locations {
		if loc == location {
			return true
		}
		for _, p := range l.Plugins {
			if p.Path() == location {
				return true
			}
		}
	}
	return false
}

func (f *Fake) CreateInstance(location string) (module.Plugin, error) {
	f.record("CreateInstance", module.StateInitialized)
	if !f.knows(location) {
		return nil, module.ErrUnknownLocation
	}
	p := NewPlugin(f.IdentName, location)
	f.mu.Lock()
	if f.instances == nil {
		f.instances = make(map[*Plugin]struct{})
	}
	f.instances[p] = struct{}{}
	f.mu.Unlock()
	return p, nil
}

func (f *Fake) DeleteInstance(instance module.Plugin) error {
	f.record("DeleteInstance", module.StateInitialized)
	p, ok := instance.(*Plugin)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !ok {
		return module.ErrForeignInstance
	}
	if _, owned := f.instances[p]; !owned {
		return module.ErrForeignInstance
	}
	delete(f.instances, p)
	return nil
}

// Entry returns an EntryPoint that hands out f
func (f *Fake) Entry() module.EntryPoint {
	return func(mgr module.Manager, location string) module.Module {
		return f
	}
}
