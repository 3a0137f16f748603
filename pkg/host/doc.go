// Package host loads modules, keeps the module registry and drives plugin
// discovery.
//
// # Startup
//
// Startup drains the builtin registrar, then loads every external module found
// in the configured search paths. Each module is initialized before it is
// admitted to the registry; a module that fails to load or initialize is
// logged, counted and reported, and startup carries on with the rest.
//
//	mgr := host.NewManager(host.WithConfig(cfg), host.WithLogger(log))
//	report, err := mgr.Startup(ctx)
//	defer mgr.Shutdown()
//
// # Discovery
//
// Discover walks every admitted module: AutoRegisterPlugins, then
// FindPluginPaths, then DiscoverPluginsAtPath for each location that is new
// and selected. Modules are processed in parallel, bounded by the configured
// concurrency; a single module is never driven by two goroutines at once.
//
// # Guarded modules
//
// The registry hands out *Entry values. An Entry forwards to the module it
// wraps only while the module is initialized, so callers holding an Entry can
// never reach a module that failed Initialize or was terminated.
package host
