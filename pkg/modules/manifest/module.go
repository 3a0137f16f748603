package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/registrar"
	"github.com/sirupsen/logrus"
)

// Name is the module name
const Name = "manifest"

// Version is the module version
const Version = "1.0.0"

func init() {
	registrar.Declare(Name, Entry)
}

// Plugin is a plugin described by a manifest entry
type Plugin struct {
	module.Ident
	PluginKind string
}

// Kind implements module.Plugin
func (p *Plugin) Kind() string { return p.PluginKind }

func newPlugin(file string, e PluginEntry) *Plugin {
	return &Plugin{
		Ident: module.Ident{
			IdentPath:        Location(file, e.Name),
			IdentName:        e.Name,
			IdentVendor:      e.Vendor,
			IdentVersion:     e.Version,
			IdentDescription: e.Description,
		},
		PluginKind: e.Kind,
	}
}

// Module fronts the plugins described by manifest files
type Module struct {
	module.Ident

	dirs []string
	log  *logrus.Logger

	mu        sync.Mutex
	instances map[*Plugin]struct{}
}

var _ module.Module = (*Module)(nil)

// New creates a manifest module reading dirs. The first directory is the
// install path.
func New(dirs []string, log *logrus.Logger) *Module {
	if log == nil {
		log = logrus.New()
	}
	return &Module{
		Ident: module.Ident{
			IdentName:        Name,
			IdentVendor:      "modhost",
			IdentVersion:     Version,
			IdentDescription: "Plugins described by YAML manifest files",
		},
		dirs:      dirs,
		log:       log,
		instances: make(map[*Plugin]struct{}),
	}
}

// Entry is the module's entry point
func Entry(mgr module.Manager, location string) module.Module {
	m := New(DefaultDirs(), logrus.StandardLogger())
	m.IdentPath = location
	return m
}

// DefaultDirs returns the manifest directories from MODHOST_MANIFEST_PATH,
// falling back to <user config dir>/modhost/plugins
func DefaultDirs() []string {
	if v := os.Getenv("MODHOST_MANIFEST_PATH"); v != "" {
		return filepath.SplitList(v)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return []string{filepath.Join(base, "modhost", "plugins")}
}

// Initialize creates the install directory
func (m *Module) Initialize() error {
	if len(m.dirs) == 0 {
		return errors.New("no manifest directories configured")
	}
	if err := os.MkdirAll(m.dirs[0], 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	return nil
}

// Terminate forgets outstanding instances
func (m *Module) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.instances); n > 0 {
		m.log.Warnf("Manifest module terminated with %d live instances", n)
	}
	m.instances = make(map[*Plugin]struct{})
}

func (m *Module) FileExtensions() []string {
	return []string{".yaml", ".yml"}
}

func (m *Module) InstallPath() string {
	if len(m.dirs) == 0 {
		return ""
	}
	return m.dirs[0]
}

// AutoRegisterPlugins registers nothing; every plugin comes from a file
func (m *Module) AutoRegisterPlugins(pm module.PluginManager) error {
	return nil
}

// FindPluginPaths lists the manifest files under the manifest directories.
// Without a plugin manager the directories are walked directly.
func (m *Module) FindPluginPaths(pm module.PluginManager) []string {
	if pm == nil {
		return m.walkDirs()
	}
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		paths = append(paths, pm.FindFilesInPathList(pattern, m.dirs, true)...)
	}
	return paths
}

func (m *Module) walkDirs() []string {
	var paths []string
	for _, dir := range m.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return err
				}
				return nil
			}
			if d.Type().IsRegular() && isManifestFile(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.log.Warnf("Failed to walk manifest directory %s: %v", dir, err)
		}
	}
	return paths
}

// DiscoverPluginsAtPath registers the plugins of a manifest file, or the
// single plugin of a "<file>#<name>" location. Invalid entries are reported
// in the error; valid ones are registered regardless.
func (m *Module) DiscoverPluginsAtPath(location string, cb module.RegistrationCallback) (int, error) {
	cb = module.CallbackOrDefault(cb)
	file, only := splitLocation(location)

	f, err := m.load(file)
	if err != nil {
		return 0, err
	}

	count := 0
	var errs []error
	seen := make(map[string]bool)
	for i, e := range f.Plugins {
		if only != "" && e.Name != only {
			continue
		}
		if problems := e.Validate(); len(problems) > 0 {
			for _, p := range problems {
				errs = append(errs, fmt.Errorf("entry %d: %s", i, p))
			}
			continue
		}
		if seen[e.Name] {
			errs = append(errs, fmt.Errorf("entry %d: duplicate plugin name %s", i, e.Name))
			continue
		}
		seen[e.Name] = true

		if cb(m, newPlugin(file, e)).Registered() {
			count++
		}
	}

	if only != "" && !seen[only] && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("%w: no plugin named %s", module.ErrUnknownLocation, only))
	}

	m.log.Debugf("Discovered %d plugins in %s", count, file)
	return count, errors.Join(errs...)
}

// IsPluginValid checks that the manifest file exists (fast) or that it still
// describes a valid plugin at location (thorough)
func (m *Module) IsPluginValid(location string, fast bool) bool {
	file, name := splitLocation(location)

	if fast {
		fi, err := os.Stat(file)
		return err == nil && fi.Mode().IsRegular()
	}

	f, err := LoadFile(file)
	if err != nil {
		return false
	}
	if name == "" {
		return true
	}
	_, ok := f.find(name)
	return ok
}

// CreateInstance builds the plugin at a "<file>#<name>" location
func (m *Module) CreateInstance(location string) (module.Plugin, error) {
	file, name := splitLocation(location)

	f, err := m.load(file)
	if err != nil {
		return nil, err
	}
	e, ok := f.find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", module.ErrUnknownLocation, location)
	}

	p := newPlugin(file, e)
	m.mu.Lock()
	m.instances[p] = struct{}{}
	m.mu.Unlock()
	return p, nil
}

// DeleteInstance releases an instance created by this module
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

func (m *Module) load(file string) (*File, error) {
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", module.ErrUnknownLocation, file)
		}
		return nil, err
	}
	return LoadFile(file)
}
