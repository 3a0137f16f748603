package moduletest

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/platinummonkey/modhost/pkg/module"
)

// PluginManager is an in-memory module.PluginManager. Plugins are identified
// by their path; Reject makes RegisterPlugin refuse a path.
type PluginManager struct {
	Reject map[string]bool

	mu      sync.Mutex
	plugins map[string]module.Plugin
	owners  map[string]module.Module
}

// NewPluginManager returns an empty PluginManager
func NewPluginManager() *PluginManager {
	return &PluginManager{
		Reject:  make(map[string]bool),
		plugins: make(map[string]module.Plugin),
		owners:  make(map[string]module.Module),
	}
}

func (pm *PluginManager) RegisterPlugin(m module.Module, p module.Plugin) module.PluginID {
	if p == nil || p.Path() == "" || pm.Reject[p.Path()] {
		return ""
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.plugins[p.Path()] = p
	pm.owners[p.Path()] = m
	return module.PluginID(p.Path())
}

func (pm *PluginManager) IsPluginRegistered(location string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	_, ok := pm.plugins[location]
	return ok
}

func (pm *PluginManager) FindFilesInPathList(pattern string, dirs []string, recursive bool) []string {
	var found []string
	for _, dir := range dirs {
		if !recursive {
			matches, _ := filepath.Glob(filepath.Join(dir, pattern))
			found = append(found, matches...)
			continue
		}
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				found = append(found, path)
			}
			return nil
		})
	}
	sort.Strings(found)
	return found
}

// Paths returns the registered plugin paths, sorted
func (pm *PluginManager) Paths() []string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	paths := make([]string, 0, len(pm.plugins))
	for p := range pm.plugins {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Owner returns the module a plugin was registered by
func (pm *PluginManager) Owner(path string) module.Module {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.owners[path]
}
