package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/observability"
	"github.com/sirupsen/logrus"
)

// Kind tells how a module reached the host
type Kind string

const (
	KindBuiltin  Kind = "builtin"
	KindExternal Kind = "external"
)

// Entry is a registered module behind a lifecycle guard. Calls are forwarded
// only in the states that allow them and are serialized, so the wrapped module
// is driven by one goroutine at a time.
type Entry struct {
	mod      module.Module
	kind     Kind
	location string
	log      *logrus.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	state  module.State
	failed bool
}

var _ module.Module = (*Entry)(nil)

func newEntry(mod module.Module, kind Kind, location string, log *logrus.Logger, metrics *observability.Metrics) *Entry {
	return &Entry{
		mod:      mod,
		kind:     kind,
		location: location,
		log:      log,
		metrics:  metrics,
		state:    module.StateCreated,
	}
}

// Kind returns whether the module is builtin or external
func (e *Entry) Kind() Kind { return e.kind }

// Location returns where an external module was loaded from; empty for builtins
func (e *Entry) Location() string { return e.location }

// Unwrap returns the unguarded module
func (e *Entry) Unwrap() module.Module { return e.mod }

// State returns the lifecycle state
func (e *Entry) State() module.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Entry) Path() string        { return e.mod.Path() }
func (e *Entry) Name() string        { return e.mod.Name() }
func (e *Entry) Vendor() string      { return e.mod.Vendor() }
func (e *Entry) Version() string     { return e.mod.Version() }
func (e *Entry) Description() string { return e.mod.Description() }

// ready reports why the module cannot take a call, or nil. Callers hold e.mu.
func (e *Entry) ready() error {
	switch {
	case e.state == module.StateTerminated:
		return module.ErrTerminated
	case e.failed || e.state != module.StateInitialized:
		return module.ErrNotInitialized
	}
	return nil
}

// Initialize runs the module's Initialize once. A failure or panic discards
// the module: every later call is refused.
func (e *Entry) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.state == module.StateTerminated:
		return module.ErrTerminated
	case e.failed:
		return module.ErrNotInitialized
	case e.state == module.StateInitialized:
		return module.ErrAlreadyInitialized
	}

	if err := observability.CallSafely(e.mod.Initialize); err != nil {
		e.failed = true
		return &InitError{Module: e.mod.Name(), Location: e.location, Err: err}
	}

	e.state = module.StateInitialized
	return nil
}

// Terminate runs the module's Terminate once, and only after a successful
// Initialize. Panics are logged and swallowed.
func (e *Entry) Terminate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready() != nil {
		return
	}
	e.state = module.StateTerminated

	defer observability.RecoverPanic(e.log, fmt.Sprintf("terminate %s", e.mod.Name()))
	e.mod.Terminate()
}

// call runs one module operation, turning a panic into an error. Callers
// hold e.mu.
func (e *Entry) call(op string, fn func() error) error {
	err := observability.CallSafely(fn)
	if errors.Is(err, observability.ErrPanic) {
		e.log.WithFields(logrus.Fields{
			"module":    e.mod.Name(),
			"operation": op,
		}).Errorf("Module panicked: %v", err)
		return fmt.Errorf("module %s: %s: %w", e.mod.Name(), op, err)
	}
	return err
}

// FileExtensions forwards until the module is terminated
func (e *Entry) FileExtensions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == module.StateTerminated || e.failed {
		return nil
	}

	var exts []string
	if err := e.call("file extensions", func() error {
		exts = e.mod.FileExtensions()
		return nil
	}); err != nil {
		return nil
	}
	return exts
}

// InstallPath forwards until the module is terminated
func (e *Entry) InstallPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == module.StateTerminated || e.failed {
		return ""
	}

	var path string
	if err := e.call("install path", func() error {
		path = e.mod.InstallPath()
		return nil
	}); err != nil {
		return ""
	}
	return path
}

func (e *Entry) AutoRegisterPlugins(pm module.PluginManager) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	return e.call("auto-register plugins", func() error {
		return e.mod.AutoRegisterPlugins(e.wrap(pm))
	})
}

func (e *Entry) FindPluginPaths(pm module.PluginManager) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready() != nil {
		return nil
	}

	var paths []string
	if err := e.call("find plugin paths", func() error {
		paths = e.mod.FindPluginPaths(e.wrap(pm))
		return nil
	}); err != nil {
		return nil
	}
	return paths
}

// DiscoverPluginsAtPath forwards to the module. The callback sees the Entry
// rather than the raw module, so registered plugins stay tied to the guard.
// After a panic the count is the number of plugins registered before it.
func (e *Entry) DiscoverPluginsAtPath(location string, cb module.RegistrationCallback) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return 0, err
	}

	cb = module.CallbackOrDefault(cb)
	registered := 0
	count := 0
	err := e.call("discover plugins at "+location, func() error {
		var err error
		count, err = e.mod.DiscoverPluginsAtPath(location, func(_ module.Module, p module.Plugin) module.PluginID {
			id := cb(e, p)
			if id.Registered() {
				registered++
			}
			return id
		})
		return err
	})
	if errors.Is(err, observability.ErrPanic) {
		return registered, err
	}
	return count, err
}

func (e *Entry) IsPluginValid(location string, fast bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready() != nil {
		return false
	}

	valid := false
	if err := e.call("validate "+location, func() error {
		valid = e.mod.IsPluginValid(location, fast)
		return nil
	}); err != nil {
		return false
	}
	return valid
}

func (e *Entry) CreateInstance(location string) (module.Plugin, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}

	var instance module.Plugin
	err := e.call("create instance of "+location, func() error {
		var err error
		instance, err = e.mod.CreateInstance(location)
		return err
	})
	if err != nil {
		return nil, err
	}
	if instance != nil {
		e.metrics.InstancesActive.WithLabelValues(e.mod.Name()).Inc()
	}
	return instance, nil
}

func (e *Entry) DeleteInstance(instance module.Plugin) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if instance == nil {
		return module.ErrNilInstance
	}

	if err := e.call("delete instance", func() error {
		return e.mod.DeleteInstance(instance)
	}); err != nil {
		return err
	}
	e.metrics.InstancesActive.WithLabelValues(e.mod.Name()).Dec()
	return nil
}

// guardedPluginManager hands the Entry, not the raw module, to RegisterPlugin
type guardedPluginManager struct {
	module.PluginManager
	entry *Entry
}

func (g guardedPluginManager) RegisterPlugin(_ module.Module, p module.Plugin) module.PluginID {
	return g.PluginManager.RegisterPlugin(g.entry, p)
}

func (e *Entry) wrap(pm module.PluginManager) module.PluginManager {
	if pm == nil {
		return nil
	}
	return guardedPluginManager{PluginManager: pm, entry: e}
}
