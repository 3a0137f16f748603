//go:build modhost_external

// Command modhost-manifest builds the manifest module as an external module:
//
//	go build -tags modhost_external -buildmode=plugin -o manifest.so ./cmd/modhost-manifest
package main

import (
	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/modules/manifest"
)

// ModuleEntry is resolved by the host loader
func ModuleEntry(mgr module.Manager, location string) module.Module {
	return manifest.Entry(mgr, location)
}

var _ module.EntryPoint = ModuleEntry

func main() {}
