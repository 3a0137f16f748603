// Package manifest is a module whose plugins are described in YAML files.
//
// One file may describe several plugins:
//
//	plugins:
//	  - name: reverb
//	    kind: effect
//	    version: 1.2.0
//	    vendor: Acme
//	  - name: echo
//	    kind: effect
//
// Each plugin's location is "<file>#<name>". Entries missing a name or kind,
// or carrying a version that is not semver, are reported as errors while their
// valid siblings still register. YAML files dropped onto the host are
// installed into the first manifest directory.
//
// The manifest directories come from MODHOST_MANIFEST_PATH (a path list) and
// default to <user config dir>/modhost/plugins.
package manifest
