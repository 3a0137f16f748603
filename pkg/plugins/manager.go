package plugins

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/modhost/pkg/async"
	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/observability"
	"github.com/sirupsen/logrus"
)

// idNamespace seeds plugin IDs
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/platinummonkey/modhost/plugins"))

const (
	defaultCacheSize = 1024
	defaultCacheTTL  = 5 * time.Minute
)

// Manager keeps plugin descriptors in memory
type Manager struct {
	source  ModuleSource
	log     *logrus.Logger
	metrics *observability.Metrics
	now     func() time.Time

	cacheSize int
	cacheTTL  time.Duration
	validity  *expirable.LRU[string, bool]

	mu      sync.RWMutex
	plugins map[module.PluginID]*Descriptor
	byPath  map[string]module.PluginID

	// remembered holds restored states of plugins not registered yet
	remembered map[module.PluginID]State
}

var _ module.PluginManager = (*Manager)(nil)

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

// WithValidityCache sizes the cache of fast validity results. A size of 0
// disables caching.
func WithValidityCache(size int, ttl time.Duration) Option {
	return func(m *Manager) {
		m.cacheSize = size
		m.cacheTTL = ttl
	}
}

// NewManager creates a plugin manager resolving modules through source
func NewManager(source ModuleSource, opts ...Option) *Manager {
	m := &Manager{
		source:    source,
		log:       logrus.New(),
		now:       time.Now,
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
		plugins:   make(map[module.PluginID]*Descriptor),
		byPath:    make(map[string]module.PluginID),

		remembered: make(map[module.PluginID]State),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.metrics == nil {
		m.metrics = observability.NewMetrics(nil)
	}
	if m.cacheSize > 0 {
		m.validity = expirable.NewLRU[string, bool](m.cacheSize, nil, m.cacheTTL)
	}
	return m
}

// PluginID returns the ID a plugin at path registered by the named module gets
func PluginID(moduleName, path string) module.PluginID {
	return module.PluginID(uuid.NewSHA1(idNamespace, []byte(moduleName+"\x00"+path)).String())
}

// RegisterPlugin records p as provided by m. Plugins without a path cannot be
// registered and yield the empty ID. Registering the same location again
// refreshes its metadata and keeps its enabled flag.
func (m *Manager) RegisterPlugin(mod module.Module, p module.Plugin) module.PluginID {
	if mod == nil || p == nil || p.Path() == "" {
		return ""
	}

	id := PluginID(mod.Name(), p.Path())
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	desc, exists := m.plugins[id]
	if !exists {
		desc = &Descriptor{
			ID:           id,
			Module:       mod.Name(),
			Enabled:      true,
			RegisteredAt: now,
		}
		if st, ok := m.remembered[id]; ok {
			desc.Enabled = st.Enabled
			desc.RegisteredAt = st.RegisteredAt
			delete(m.remembered, id)
		}
		m.plugins[id] = desc
	}
	desc.Ident = module.IdentOf(p)
	desc.Kind = p.Kind()
	desc.Valid = true
	desc.ValidatedAt = now
	m.byPath[p.Path()] = id
	if m.validity != nil {
		m.validity.Remove(validityKey(desc.Module, p.Path()))
	}

	m.metrics.PluginsKnown.Set(float64(len(m.plugins)))
	m.log.WithFields(logrus.Fields{
		"module": desc.Module,
		"plugin": desc.Name(),
		"path":   desc.Path(),
	}).Debug("Registered plugin")

	return id
}

// Callback returns a registration callback bound to RegisterPlugin
func (m *Manager) Callback() module.RegistrationCallback {
	return m.RegisterPlugin
}

// IsPluginRegistered reports whether a plugin is known at location
func (m *Manager) IsPluginRegistered(location string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byPath[location]
	return ok
}

// Get returns a copy of the descriptor for id
func (m *Manager) Get(id module.PluginID) (Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	desc, ok := m.plugins[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	return *desc, nil
}

// List returns all descriptors sorted by module and path
func (m *Manager) List() []Descriptor {
	return m.filter(func(*Descriptor) bool { return true })
}

// ListByModule returns the descriptors registered by the named module
func (m *Manager) ListByModule(name string) []Descriptor {
	return m.filter(func(d *Descriptor) bool { return d.Module == name })
}

// ListByKind returns the descriptors of a given kind
func (m *Manager) ListByKind(kind string) []Descriptor {
	return m.filter(func(d *Descriptor) bool { return d.Kind == kind })
}

func (m *Manager) filter(keep func(*Descriptor) bool) []Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Descriptor, 0, len(m.plugins))
	for _, d := range m.plugins {
		if keep(d) {
			result = append(result, *d)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Module != result[j].Module {
			return result[i].Module < result[j].Module
		}
		return result[i].Path() < result[j].Path()
	})
	return result
}

// SetEnabled enables or disables a plugin
func (m *Manager) SetEnabled(id module.PluginID, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if desc, ok := m.plugins[id]; ok {
		desc.Enabled = enabled
		return nil
	}
	if st, ok := m.remembered[id]; ok {
		st.Enabled = enabled
		m.remembered[id] = st
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
}

// Restore applies saved plugin states. Known plugins take the saved enabled
// flag at once; the others keep it until they are registered.
func (m *Manager) Restore(states []State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, st := range states {
		if st.ID == "" {
			continue
		}
		if desc, ok := m.plugins[st.ID]; ok {
			desc.Enabled = st.Enabled
			continue
		}
		m.remembered[st.ID] = st
	}
	m.log.Debugf("Restored %d plugin states", len(states))
}

// Snapshot returns the state of every known plugin, including restored
// plugins that were not registered again, sorted by module and path
func (m *Manager) Snapshot() []State {
	m.mu.RLock()
	states := make([]State, 0, len(m.plugins)+len(m.remembered))
	for _, d := range m.plugins {
		states = append(states, State{
			ID:           d.ID,
			Module:       d.Module,
			Path:         d.Path(),
			Name:         d.Name(),
			Kind:         d.Kind,
			Enabled:      d.Enabled,
			RegisteredAt: d.RegisteredAt,
		})
	}
	for _, st := range m.remembered {
		states = append(states, st)
	}
	m.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		if states[i].Module != states[j].Module {
			return states[i].Module < states[j].Module
		}
		return states[i].Path < states[j].Path
	})
	return states
}

// Count returns the number of known plugins
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.plugins)
}

type validation struct {
	id   module.PluginID
	path string
}

// Revalidate asks each plugin's module whether its location is still valid
// and marks the ones that are not. Stale plugins are kept. Modules are checked
// in parallel, the plugins of one module sequentially. Fast results are served
// from and stored in the validity cache.
func (m *Manager) Revalidate(ctx context.Context, fast bool) (*RevalidationReport, error) {
	ctx, span := observability.StartSpan(ctx, "plugins.revalidate")
	defer span.End()

	groups := make(map[string][]validation)
	m.mu.RLock()
	for id, d := range m.plugins {
		groups[d.Module] = append(groups[d.Module], validation{id: id, path: d.Path()})
	}
	m.mu.RUnlock()

	moduleNames := make([]string, 0, len(groups))
	for name := range groups {
		moduleNames = append(moduleNames, name)
	}
	sort.Strings(moduleNames)

	report := &RevalidationReport{}
	var reportMu sync.Mutex

	errs := async.Batch(ctx, moduleNames, 4, "revalidate plugins", 0, func(ctx context.Context, name string) error {
		mod, ok := m.lookup(name)
		for _, v := range groups[name] {
			if err := ctx.Err(); err != nil {
				return err
			}

			valid, cached := false, false
			if ok {
				valid, cached = m.checkValid(mod, v.path, fast)
			}
			m.markValid(v.id, valid)

			reportMu.Lock()
			report.Checked++
			if cached {
				report.Cached++
			}
			if !valid {
				report.Stale = append(report.Stale, v.id)
			}
			reportMu.Unlock()
		}
		return nil
	})

	sort.Slice(report.Stale, func(i, j int) bool { return report.Stale[i] < report.Stale[j] })
	m.metrics.PluginsStale.Set(float64(m.staleCount()))
	m.log.Infof("Revalidated %d plugins (%d cached), %d stale", report.Checked, report.Cached, len(report.Stale))

	if len(errs) > 0 {
		observability.RecordError(span, errs[0])
		return report, fmt.Errorf("revalidation interrupted: %w", errs[0])
	}
	return report, nil
}

func (m *Manager) lookup(name string) (module.Module, bool) {
	if m.source == nil {
		return nil, false
	}
	return m.source.Lookup(name)
}

// validityKey scopes cached results to the module, as two modules may claim
// the same location
func validityKey(moduleName, path string) string {
	return moduleName + "\x00" + path
}

func (m *Manager) checkValid(mod module.Module, path string, fast bool) (valid, cached bool) {
	key := validityKey(mod.Name(), path)
	if fast && m.validity != nil {
		if v, ok := m.validity.Get(key); ok {
			return v, true
		}
	}

	valid = mod.IsPluginValid(path, fast)
	if m.validity != nil {
		m.validity.Add(key, valid)
	}
	return valid, false
}

func (m *Manager) markValid(id module.PluginID, valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.plugins[id]; ok {
		d.Valid = valid
		d.ValidatedAt = m.now()
	}
}

func (m *Manager) staleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, d := range m.plugins {
		if !d.Valid {
			n++
		}
	}
	return n
}

// Instantiate creates an instance of an enabled, valid plugin. The location is
// checked thoroughly first; a failed check marks the plugin stale.
func (m *Manager) Instantiate(id module.PluginID) (*module.Handle, error) {
	desc, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if !desc.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrPluginDisabled, desc.Name())
	}
	if !desc.Valid {
		return nil, fmt.Errorf("%w: %s", ErrPluginStale, desc.Path())
	}

	mod, ok := m.lookup(desc.Module)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleUnavailable, desc.Module)
	}

	if !mod.IsPluginValid(desc.Path(), false) {
		m.markValid(id, false)
		if m.validity != nil {
			m.validity.Add(validityKey(desc.Module, desc.Path()), false)
		}
		return nil, fmt.Errorf("%w: %s", ErrPluginStale, desc.Path())
	}

	return module.Acquire(mod, desc.Path())
}
