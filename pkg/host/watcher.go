package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/sirupsen/logrus"
)

// Watcher discovers plugins dropped into module install paths. A created or
// written file is handed to every module watching its directory that accepts it.
type Watcher struct {
	host    *Manager
	pm      module.PluginManager
	log     *logrus.Logger
	watcher *fsnotify.Watcher

	// dirs maps a watched directory to the modules installing into it
	dirs map[string][]string

	mu      sync.Mutex
	handled int
}

// NewWatcher watches the install path of every admitted module that supports
// drag-and-drop. Missing install paths are created.
func NewWatcher(host *Manager, pm module.PluginManager) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		host:    host,
		pm:      pm,
		log:     host.log,
		watcher: fw,
		dirs:    make(map[string][]string),
	}

	for _, e := range host.registry.List() {
		if e.State() != module.StateInitialized || !module.SupportsInstall(e) {
			continue
		}

		dir := filepath.Clean(e.InstallPath())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to create install path %s: %w", dir, err)
		}
		if _, watched := w.dirs[dir]; !watched {
			if err := fw.Add(dir); err != nil {
				fw.Close()
				return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}
		w.dirs[dir] = append(w.dirs[dir], e.Name())
	}

	return w, nil
}

// Dirs returns the watched directories
func (w *Watcher) Dirs() []string {
	dirs := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		dirs = append(dirs, dir)
	}
	return dirs
}

// Handled returns how many files were passed to a module
func (w *Watcher) Handled() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handled
}

// Run processes events until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Infof("Watching %d install paths for new plugins", len(w.dirs))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.handle(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("Watcher error: %v", err)
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return
	}

	var cb module.RegistrationCallback
	if w.pm != nil {
		cb = w.pm.RegisterPlugin
	}

	for _, name := range w.dirs[filepath.Dir(path)] {
		e, ok := w.host.registry.Get(name)
		if !ok || !module.AcceptsFile(e, path) {
			continue
		}

		report, err := w.host.DiscoverAt(ctx, name, path, cb)
		if err != nil {
			w.log.Warnf("Cannot discover %s with %s: %v", path, name, err)
			continue
		}

		w.mu.Lock()
		w.handled++
		w.mu.Unlock()
		w.log.WithFields(logrus.Fields{
			"module":     name,
			"location":   path,
			"registered": report.Registered,
		}).Info("Discovered dropped plugin file")
	}
}
