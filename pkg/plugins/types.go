package plugins

import (
	"time"

	"github.com/platinummonkey/modhost/pkg/module"
)

// ModuleSource resolves module names to the modules that own plugins. The
// host's Manager implements it with guarded modules.
type ModuleSource interface {
	Lookup(name string) (module.Module, bool)
}

// Descriptor is what the plugin manager knows about one plugin
type Descriptor struct {
	module.Ident `yaml:",inline"`

	ID           module.PluginID `json:"id" yaml:"id"`
	Module       string          `json:"module" yaml:"module"`
	Kind         string          `json:"kind" yaml:"kind"`
	Enabled      bool            `json:"enabled" yaml:"enabled"`
	Valid        bool            `json:"valid" yaml:"valid"`
	RegisteredAt time.Time       `json:"registered_at" yaml:"registered_at"`
	ValidatedAt  time.Time       `json:"validated_at,omitempty" yaml:"validated_at,omitempty"`
}

// RevalidationReport is the outcome of Revalidate
type RevalidationReport struct {
	Checked int               `json:"checked"`
	Cached  int               `json:"cached"`
	Stale   []module.PluginID `json:"stale"`
}

// State is the persisted part of a descriptor
type State struct {
	ID           module.PluginID `json:"id" yaml:"id"`
	Module       string          `json:"module" yaml:"module"`
	Path         string          `json:"path" yaml:"path"`
	Name         string          `json:"name" yaml:"name"`
	Kind         string          `json:"kind" yaml:"kind"`
	Enabled      bool            `json:"enabled" yaml:"enabled"`
	RegisteredAt time.Time       `json:"registered_at" yaml:"registered_at"`
}
