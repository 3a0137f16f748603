package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/modhost/pkg/async"
	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/observability"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// SelectFunc picks the locations to discover among the new candidates of a module
type SelectFunc func(m module.Module, candidates []string) []string

// DiscoveryOptions tunes Discover
type DiscoveryOptions struct {
	// Select chooses among new candidate locations. Nil selects all of them.
	Select SelectFunc

	// Callback receives every discovered plugin. Nil means the plugin
	// manager's RegisterPlugin.
	Callback module.RegistrationCallback

	// Modules restricts discovery to these module names. Empty means all.
	Modules []string
}

// SelectLocations returns a SelectFunc keeping only the given locations
func SelectLocations(locations ...string) SelectFunc {
	wanted := make(map[string]struct{}, len(locations))
	for _, l := range locations {
		wanted[l] = struct{}{}
	}
	return func(_ module.Module, candidates []string) []string {
		var selected []string
		for _, c := range candidates {
			if _, ok := wanted[c]; ok {
				selected = append(selected, c)
			}
		}
		return selected
	}
}

// LocationReport is the outcome of DiscoverPluginsAtPath at one location.
// Registered and Err are independent: both may be set.
type LocationReport struct {
	Module     string `json:"module"`
	Location   string `json:"location"`
	Registered int    `json:"registered"`
	Err        error  `json:"-"`
}

// ModuleDiscovery is the outcome of discovery for one module
type ModuleDiscovery struct {
	Module      string           `json:"module"`
	AutoErr     error            `json:"-"`
	Candidates  []string         `json:"candidates"`
	Selected    []string         `json:"selected"`
	Locations   []LocationReport `json:"locations"`
	Interrupted error            `json:"-"`
	Duration    time.Duration    `json:"duration"`
}

// Registered returns the number of plugins registered through locations
func (md *ModuleDiscovery) Registered() int {
	total := 0
	for _, lr := range md.Locations {
		total += lr.Registered
	}
	return total
}

// DiscoverySummary collects the outcome of Discover
type DiscoverySummary struct {
	Modules []ModuleDiscovery `json:"modules"`
}

// Registered returns the number of plugins registered through locations
func (s *DiscoverySummary) Registered() int {
	total := 0
	for i := range s.Modules {
		total += s.Modules[i].Registered()
	}
	return total
}

// Err joins every error raised during discovery, each prefixed with its
// module and location
func (s *DiscoverySummary) Err() error {
	var errs []error
	for _, md := range s.Modules {
		if md.AutoErr != nil {
			errs = append(errs, fmt.Errorf("%s: auto-register: %w", md.Module, md.AutoErr))
		}
		for _, lr := range md.Locations {
			if lr.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %s: %w", md.Module, lr.Location, lr.Err))
			}
		}
		if md.Interrupted != nil {
			errs = append(errs, fmt.Errorf("%s: %w", md.Module, md.Interrupted))
		}
	}
	return errors.Join(errs...)
}

// Discover runs plugin discovery over the admitted modules. Modules are
// processed concurrently; each module's own steps run in order. The context is
// checked between locations, never during a module call. The returned error is
// ctx.Err() when discovery was cut short; per-module failures live in the
// summary.
func (m *Manager) Discover(ctx context.Context, pm module.PluginManager, opts DiscoveryOptions) (*DiscoverySummary, error) {
	ctx, span := observability.StartSpan(ctx, "host.discover")
	defer span.End()

	cb := opts.Callback
	if cb == nil && pm != nil {
		cb = pm.RegisterPlugin
	}

	entries := m.discoverable(opts.Modules)
	summary := &DiscoverySummary{Modules: make([]ModuleDiscovery, len(entries))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			summary.Modules[i] = m.discoverModule(gctx, e, pm, opts.Select, cb)
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(attribute.Int("plugins.registered", summary.Registered()))
	if err := summary.Err(); err != nil {
		observability.RecordError(span, err)
	}
	m.log.Infof("Discovery finished: %d plugins registered across %d modules", summary.Registered(), len(entries))

	return summary, ctx.Err()
}

// DiscoverInBackground runs Discover off the caller's goroutine. The channel
// yields the summary once and is then closed.
func (m *Manager) DiscoverInBackground(ctx context.Context, pm module.PluginManager, opts DiscoveryOptions) <-chan *DiscoverySummary {
	return async.Future(ctx, "discover plugins", func(ctx context.Context) *DiscoverySummary {
		summary, err := m.Discover(ctx, pm, opts)
		if err != nil {
			m.log.Warnf("Background discovery interrupted: %v", err)
		}
		return summary
	})
}

// DiscoverAt discovers plugins at a single location through the named module.
// The module's own error, if any, is in the report; the returned error is set
// only when the module is unknown or not initialized.
func (m *Manager) DiscoverAt(ctx context.Context, name, location string, cb module.RegistrationCallback) (*LocationReport, error) {
	_, span := observability.StartSpan(ctx, "host.discover_at",
		attribute.String("module.name", name),
		attribute.String("plugin.location", location),
	)
	defer span.End()

	e, ok := m.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	if state := e.State(); state != module.StateInitialized {
		return nil, fmt.Errorf("module %s is %s: %w", name, state, module.ErrNotInitialized)
	}

	report := m.discoverLocation(e, location, cb)
	observability.RecordError(span, report.Err)
	return &report, nil
}

func (m *Manager) discoverable(names []string) []*Entry {
	var entries []*Entry
	if len(names) == 0 {
		entries = m.registry.List()
	} else {
		for _, name := range names {
			if e, ok := m.registry.Get(name); ok {
				entries = append(entries, e)
			} else {
				m.log.Warnf("Discovery requested for unknown module %s", name)
			}
		}
	}

	ready := entries[:0]
	for _, e := range entries {
		if e.State() == module.StateInitialized {
			ready = append(ready, e)
		}
	}
	return ready
}

func (m *Manager) discoverModule(ctx context.Context, e *Entry, pm module.PluginManager, sel SelectFunc, cb module.RegistrationCallback) ModuleDiscovery {
	name := e.Name()
	_, span := observability.StartSpan(ctx, "host.discover_module", attribute.String("module.name", name))
	defer span.End()

	start := time.Now()
	md := ModuleDiscovery{Module: name}
	log := m.log.WithField("module", name)

	if pm != nil {
		if err := e.AutoRegisterPlugins(pm); err != nil {
			md.AutoErr = err
			log.Warnf("Automatic plugin registration failed: %v", err)
			m.metrics.DiscoveryErrorsTotal.WithLabelValues(name, "auto").Inc()
		}
	}

	md.Candidates = newLocations(e.FindPluginPaths(pm), pm)
	md.Selected = md.Candidates
	if sel != nil {
		md.Selected = sel(e, md.Candidates)
	}
	log.Debugf("Discovering %d of %d new locations", len(md.Selected), len(md.Candidates))

	for _, location := range md.Selected {
		if err := ctx.Err(); err != nil {
			md.Interrupted = err
			break
		}
		md.Locations = append(md.Locations, m.discoverLocation(e, location, cb))
	}

	md.Duration = time.Since(start)
	m.metrics.DiscoveryDuration.WithLabelValues(name).Observe(md.Duration.Seconds())
	span.SetAttributes(attribute.Int("plugins.registered", md.Registered()))
	return md
}

func (m *Manager) discoverLocation(e *Entry, location string, cb module.RegistrationCallback) LocationReport {
	name := e.Name()
	n, err := e.DiscoverPluginsAtPath(location, cb)

	report := LocationReport{Module: name, Location: location, Registered: n, Err: err}
	if n > 0 {
		m.metrics.PluginsRegisteredTotal.WithLabelValues(name).Add(float64(n))
	}
	if err != nil {
		m.metrics.DiscoveryErrorsTotal.WithLabelValues(name, "location").Inc()
		m.log.WithFields(logrus.Fields{
			"module":     name,
			"location":   location,
			"registered": n,
		}).Warnf("Plugin discovery reported errors: %v", err)
	}
	return report
}

// newLocations drops duplicates and locations the plugin manager already knows
func newLocations(paths []string, pm module.PluginManager) []string {
	seen := make(map[string]struct{}, len(paths))
	var fresh []string
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if pm != nil && pm.IsPluginRegistered(p) {
			continue
		}
		fresh = append(fresh, p)
	}
	return fresh
}
