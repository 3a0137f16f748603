// Package plugins is an in-memory plugin manager for the module host.
//
// It implements module.PluginManager: modules register the plugins they
// discover through it, and it keeps one Descriptor per plugin location.
// Plugin IDs are name-based UUIDs derived from the owning module and the
// plugin path, so re-discovering a plugin yields the same ID.
//
//	pm := plugins.NewManager(host, plugins.WithLogger(log))
//	summary, err := host.Discover(ctx, pm, hostpkg.DiscoveryOptions{})
//
//	stale, err := pm.Revalidate(ctx, true)
//
//	h, err := pm.Instantiate(id)
//	defer h.Release()
//
// Descriptors live for the life of the process. Snapshot and Restore carry
// the enabled flags across runs; package store saves them.
package plugins
