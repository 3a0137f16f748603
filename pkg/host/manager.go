package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/platinummonkey/modhost/pkg/config"
	"github.com/platinummonkey/modhost/pkg/loader"
	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/observability"
	"github.com/platinummonkey/modhost/pkg/registrar"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Manager owns the module registry. Modules see it only as a module.Manager.
type Manager struct {
	log       *logrus.Logger
	metrics   *observability.Metrics
	loader    *loader.Loader
	registrar *registrar.Registrar
	registry  *Registry

	modules     config.ModulesConfig
	concurrency int

	// loadMu serializes admissions so staged modules belong to one load
	loadMu   sync.Mutex
	stageMu  sync.Mutex
	staged   []module.Module
	shutdown bool
}

var _ module.Manager = (*Manager)(nil)

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithMetrics sets the metrics collectors
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// WithLoader replaces the external module loader
func WithLoader(l *loader.Loader) Option {
	return func(m *Manager) {
		if l != nil {
			m.loader = l
		}
	}
}

// WithRegistrar replaces the builtin registrar, registrar.Default otherwise
func WithRegistrar(r *registrar.Registrar) Option {
	return func(m *Manager) {
		if r != nil {
			m.registrar = r
		}
	}
}

// WithConfig applies module search paths, disabled modules and discovery
// concurrency from cfg
func WithConfig(cfg *config.Config) Option {
	return func(m *Manager) {
		if cfg == nil {
			return
		}
		m.modules = cfg.Modules
		if cfg.Discovery.Concurrency > 0 {
			m.concurrency = cfg.Discovery.Concurrency
		}
	}
}

// NewManager creates a host with an empty registry
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		log:         logrus.New(),
		registrar:   registrar.Default,
		registry:    NewRegistry(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.metrics == nil {
		m.metrics = observability.NewMetrics(nil)
	}
	if m.loader == nil {
		var lopts []loader.Option
		if m.modules.Extension != "" {
			lopts = append(lopts, loader.WithExtension(m.modules.Extension))
		}
		m.loader = loader.New(m.log, lopts...)
	}
	return m
}

// Registry returns the module registry
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Lookup returns the guarded module called name
func (m *Manager) Lookup(name string) (module.Module, bool) {
	e, ok := m.registry.Get(name)
	if !ok {
		return nil, false
	}
	return e, true
}

// RegisterModule stages mod for admission. Staged modules are initialized and
// committed by the load that is in progress, or by the next one. Staging the
// same instance twice is a no-op.
func (m *Manager) RegisterModule(mod module.Module) {
	if mod == nil {
		return
	}

	m.stageMu.Lock()
	defer m.stageMu.Unlock()

	for _, s := range m.staged {
		if sameModule(s, mod) {
			return
		}
	}
	m.staged = append(m.staged, mod)
}

func (m *Manager) takeStaged() []module.Module {
	m.stageMu.Lock()
	defer m.stageMu.Unlock()

	staged := m.staged
	m.staged = nil
	return staged
}

// ModuleReport is the outcome of loading one module
type ModuleReport struct {
	Name     string `json:"name,omitempty"`
	Kind     Kind   `json:"kind"`
	Location string `json:"location,omitempty"`
	Admitted bool   `json:"admitted"`
	Err      error  `json:"-"`
}

// StartupReport collects the outcome of Startup
type StartupReport struct {
	Modules []ModuleReport
}

// Admitted returns the names of admitted modules
func (r *StartupReport) Admitted() []string {
	var names []string
	for _, mr := range r.Modules {
		if mr.Admitted {
			names = append(names, mr.Name)
		}
	}
	return names
}

// Failed returns every report that carries an error
func (r *StartupReport) Failed() []ModuleReport {
	var failed []ModuleReport
	for _, mr := range r.Modules {
		if mr.Err != nil {
			failed = append(failed, mr)
		}
	}
	return failed
}

// Err joins all failures, or returns nil
func (r *StartupReport) Err() error {
	var errs []error
	for _, mr := range r.Failed() {
		errs = append(errs, mr.Err)
	}
	return errors.Join(errs...)
}

// Startup admits the builtin modules, then the external modules found in the
// configured search paths. Failures are reported, never fatal; the returned
// error is only set when ctx ends before every module was loaded.
func (m *Manager) Startup(ctx context.Context) (*StartupReport, error) {
	ctx, span := observability.StartSpan(ctx, "host.startup")
	defer span.End()

	report := &StartupReport{}

	for _, p := range m.registrar.Drain() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		entry := p.Entry
		name := p.Name
		report.Modules = append(report.Modules, m.admit(KindBuiltin, "", func() (module.Module, error) {
			return invokeEntry(m, entry, name)
		})...)
	}

	for _, path := range m.loader.Scan(m.modules.SearchPaths) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := path
		report.Modules = append(report.Modules, m.admit(KindExternal, path, func() (module.Module, error) {
			return m.loader.Load(m, path)
		})...)
	}

	// modules staged outside any load
	report.Modules = append(report.Modules, m.admit(KindBuiltin, "", nil)...)

	span.SetAttributes(
		attribute.Int("modules.admitted", len(report.Admitted())),
		attribute.Int("modules.failed", len(report.Failed())),
	)
	m.log.Infof("Module host started: %d modules admitted, %d failed", len(report.Admitted()), len(report.Failed()))

	return report, nil
}

// LoadExternal loads and admits the external module at location
func (m *Manager) LoadExternal(ctx context.Context, location string) []ModuleReport {
	_, span := observability.StartSpan(ctx, "host.load_external", attribute.String("module.location", location))
	defer span.End()

	return m.admit(KindExternal, location, func() (module.Module, error) {
		return m.loader.Load(m, location)
	})
}

// admit runs produce, then initializes and commits every module the load
// yielded: the ones staged through RegisterModule, followed by the returned
// module when it was not staged. A nil produce commits staged modules only.
func (m *Manager) admit(kind Kind, location string, produce func() (module.Module, error)) []ModuleReport {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	if m.shutdown {
		m.takeStaged()
		return []ModuleReport{{Kind: kind, Location: location, Err: fmt.Errorf("host is shut down")}}
	}

	var returned module.Module
	if produce != nil {
		mod, err := produce()
		if err != nil {
			// a failed load commits nothing, not even what it staged
			m.takeStaged()
			m.metrics.ModuleLoadsTotal.WithLabelValues(string(kind), "load_error").Inc()
			m.log.Errorf("Failed to load module from %s: %v", describeLocation(kind, location), err)
			return []ModuleReport{{Kind: kind, Location: location, Err: err}}
		}
		returned = mod
	}

	var reports []ModuleReport
	candidates := m.takeStaged()
	if returned != nil && !containsModule(candidates, returned) {
		candidates = append(candidates, returned)
	}

	// Initialize may stage further modules
	for len(candidates) > 0 {
		for _, mod := range candidates {
			reports = append(reports, m.commit(kind, location, mod))
		}
		candidates = m.takeStaged()
	}

	return reports
}

func (m *Manager) commit(kind Kind, location string, mod module.Module) ModuleReport {
	name := mod.Name()
	report := ModuleReport{Name: name, Kind: kind, Location: location}
	log := m.log.WithFields(logrus.Fields{"module": name, "kind": kind})

	if m.modules.IsDisabled(name) {
		log.Info("Skipping disabled module")
		report.Err = fmt.Errorf("%w: %s", ErrModuleDisabled, name)
		m.metrics.ModuleLoadsTotal.WithLabelValues(string(kind), "disabled").Inc()
		return report
	}

	if _, exists := m.registry.Get(name); exists {
		report.Err = fmt.Errorf("%w: %s", ErrDuplicateModule, name)
		log.Warn("Rejecting module with duplicate name")
		m.metrics.ModuleLoadsTotal.WithLabelValues(string(kind), "duplicate").Inc()
		return report
	}

	entry := newEntry(mod, kind, location, m.log, m.metrics)
	if err := entry.Initialize(); err != nil {
		report.Err = err
		log.Errorf("Module failed to initialize: %v", err)
		m.metrics.ModuleInitFailureTotal.WithLabelValues(string(kind)).Inc()
		m.metrics.ModuleLoadsTotal.WithLabelValues(string(kind), "init_error").Inc()
		return report
	}

	if err := m.registry.add(entry); err != nil {
		entry.Terminate()
		report.Err = err
		log.Warnf("Module rejected: %v", err)
		m.metrics.ModuleLoadsTotal.WithLabelValues(string(kind), "duplicate").Inc()
		return report
	}

	report.Admitted = true
	m.metrics.ModuleLoadsTotal.WithLabelValues(string(kind), "ok").Inc()
	m.metrics.ModulesRegistered.Set(float64(m.registry.Count()))
	log.Infof("Module admitted: %s %s", name, mod.Version())
	return report
}

// Shutdown terminates every initialized module once, in reverse admission
// order. Later admissions are refused.
func (m *Manager) Shutdown() {
	m.loadMu.Lock()
	m.shutdown = true
	m.loadMu.Unlock()

	entries := m.registry.List()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.State() != module.StateInitialized {
			continue
		}
		m.log.Debugf("Terminating module %s", e.Name())
		e.Terminate()
	}
}

// ProbeResult describes an external module without admitting it
type ProbeResult struct {
	module.Ident
	Location        string   `json:"location"`
	FileExtensions  []string `json:"file_extensions"`
	InstallPath     string   `json:"install_path"`
	SupportsInstall bool     `json:"supports_install"`
}

// Probe loads the external module at location and reports its identity and
// drag-and-drop capabilities. The module is neither initialized nor admitted.
func (m *Manager) Probe(location string) (*ProbeResult, error) {
	mod, err := m.loader.Load(discardManager{}, location)
	if err != nil {
		return nil, err
	}

	return &ProbeResult{
		Ident:           module.IdentOf(mod),
		Location:        location,
		FileExtensions:  mod.FileExtensions(),
		InstallPath:     mod.InstallPath(),
		SupportsInstall: module.SupportsInstall(mod),
	}, nil
}

// discardManager ignores registrations made while probing
type discardManager struct{}

func (discardManager) RegisterModule(module.Module) {}

func invokeEntry(mgr module.Manager, entry module.EntryPoint, name string) (mod module.Module, err error) {
	location := "builtin:" + name
	defer func() {
		if r := recover(); r != nil {
			mod = nil
			err = &loader.LoadError{
				Location: location,
				Op:       loader.OpEntry,
				Err:      fmt.Errorf("%w: entry point panicked: %v", loader.ErrNilModule, r),
			}
		}
	}()

	mod = entry(mgr, "")
	if mod == nil {
		return nil, &loader.LoadError{Location: location, Op: loader.OpEntry, Err: loader.ErrNilModule}
	}
	return mod, nil
}

func describeLocation(kind Kind, location string) string {
	if location == "" {
		return string(kind)
	}
	return location
}

func containsModule(mods []module.Module, mod module.Module) bool {
	for _, m := range mods {
		if sameModule(m, mod) {
			return true
		}
	}
	return false
}

// sameModule compares by identity; non-comparable dynamic types never match
func sameModule(a, b module.Module) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
