//go:build !modhost_external

package registrar

import "github.com/platinummonkey/modhost/pkg/module"

// Embedded reports whether modules compiled into this binary register as builtins
const Embedded = true

// Declare registers a builtin module's entry point with Default
func Declare(name string, entry module.EntryPoint) {
	MustRegister(name, entry)
}
