// Package cli implements the modhost command-line interface.
//
// # Commands
//
// modules: list the modules admitted at startup, and the ones that failed
//
//	modhost modules
//
// discover: run plugin discovery, optionally limited to some locations
//
//	modhost discover --select ~/.config/modhost/plugins/effects.yaml
//
// plugins: list discovered plugins, or enable and disable one by ID. With a
// store configured the flags are saved when the command ends and restored by
// the next one.
//
//	modhost plugins list --kind effect
//	modhost plugins disable 5b0c...
//
// install: drop a file into the install path of the module that accepts it
//
//	modhost install ./reverb.yaml
//
// validate: discover, then ask every module whether its plugins are still valid
//
//	modhost validate --thorough
//
// serve: expose the host over HTTP, watch install paths and revalidate
// plugins on a schedule
//
//	modhost serve --config /etc/modhost/config.yaml
//
// # Configuration
//
// Every command loads the configuration file named by --config, then applies
// MODHOST_* environment overrides. See pkg/config.
package cli
