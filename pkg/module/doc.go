// Package module defines the contract between a host and the modules that
// provide plugins to it.
//
// # Overview
//
// A Module is a unit that fronts zero or more plugins. Modules are either
// compiled into the host binary (builtin) or loaded at runtime from a shared
// object (external). Both kinds implement the same interface and differ only
// in how the host obtains the instance: builtins through the registrar,
// externals through the loader resolving EntrySymbol.
//
// # Lifecycle
//
//	Created --Initialize(nil)--> Initialized --Terminate--> Terminated
//	Created --Initialize(err)--> discarded
//
// A module whose Initialize fails receives no further calls. All discovery
// operations are valid only while Initialized.
//
// # Discovery
//
//	paths := m.FindPluginPaths(pm)
//	for _, p := range paths {
//		n, err := m.DiscoverPluginsAtPath(p, pm.RegisterPlugin)
//		// n plugins registered; err may be non-nil even when n > 0
//	}
//
// # Instances
//
// Instances returned by CreateInstance belong to the caller but must be
// released through the creating module. Handle enforces this:
//
//	h, err := module.Acquire(m, location)
//	if err != nil {
//		return err
//	}
//	defer h.Release()
//
// # Related Packages
//
//   - pkg/registrar: builtin entry point collection
//   - pkg/loader: external entry point resolution
//   - pkg/host: module registry and discovery driver
//   - pkg/plugins: reference plugin manager
package module
