// Package registrar collects the entry points of builtin modules.
//
// # Overview
//
// Builtin modules announce their entry point from init(), before main runs and
// before the host starts discovery. The host later drains the registrar once,
// invoking every pending entry point exactly once. Registration after the
// drain is rejected, and so is a second registration under the same name.
//
//	func init() {
//		registrar.Declare("manifest", manifest.Entry)
//	}
//
// # Strategy
//
// Declare is backed by one of two strategies chosen by the modhost_external
// build tag. Builtin builds (the default) enqueue into Default. External builds
// make Declare a no-op: the module is instead exported as the ModuleEntry
// symbol of a -buildmode=plugin binary and resolved by pkg/loader.
package registrar
