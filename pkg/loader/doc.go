// Package loader resolves the entry point of external modules.
//
// An external module is a Go package built with -buildmode=plugin that
// exports module.EntrySymbol:
//
//	package main
//
//	func ModuleEntry(mgr module.Manager, location string) module.Module {
//		return mymodule.New(location)
//	}
//
// Loading opens the shared object, looks the symbol up, checks its type and
// invokes it. Every failure is a *LoadError and never yields a partially
// constructed module.
//
//	l := loader.New(nil)
//	m, err := l.Load(host, "/usr/lib/modhost/reverb.so")
//	if errors.Is(err, loader.ErrSymbolNotFound) {
//		// not a modhost module
//	}
package loader
