//go:build modhost_external

package registrar

import "github.com/platinummonkey/modhost/pkg/module"

// Embedded reports whether modules compiled into this binary register as builtins
const Embedded = false

// Declare is a no-op in external builds; the host resolves module.EntrySymbol
// from the shared object instead.
func Declare(name string, entry module.EntryPoint) {}
