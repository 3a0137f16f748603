package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var semverRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// File is the content of a manifest file
type File struct {
	Plugins []PluginEntry `yaml:"plugins"`
}

// PluginEntry describes one plugin
type PluginEntry struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Version     string `yaml:"version,omitempty"`
	Vendor      string `yaml:"vendor,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// LoadFile reads and parses a manifest file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &f, nil
}

// SaveFile writes a manifest file
func SaveFile(f *File, path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// Validate returns the problems with e, or nil
func (e PluginEntry) Validate() []string {
	var problems []string

	if e.Name == "" {
		problems = append(problems, "plugin name is required")
	}
	if strings.Contains(e.Name, locationSeparator) {
		problems = append(problems, fmt.Sprintf("plugin name %q must not contain %q", e.Name, locationSeparator))
	}
	if e.Kind == "" {
		problems = append(problems, "plugin kind is required")
	}
	if e.Version != "" && !semverRegex.MatchString(e.Version) {
		problems = append(problems, fmt.Sprintf("invalid semver format: %s", e.Version))
	}

	return problems
}

// find returns the valid entry called name
func (f *File) find(name string) (PluginEntry, bool) {
	for _, e := range f.Plugins {
		if e.Name == name && len(e.Validate()) == 0 {
			return e, true
		}
	}
	return PluginEntry{}, false
}

const locationSeparator = "#"

// Location returns the plugin location of the entry called name in file
func Location(file, name string) string {
	return file + locationSeparator + name
}

func isManifestFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// splitLocation splits "<file>#<name>"; name is empty for a bare file. An
// existing file is always bare, so "#" may appear in directory and file
// names. Otherwise the split applies only when the part before the last "#"
// names a manifest file and the part after it is not a path.
func splitLocation(location string) (file, name string) {
	if fi, err := os.Stat(location); err == nil && fi.Mode().IsRegular() {
		return location, ""
	}
	i := strings.LastIndex(location, locationSeparator)
	if i < 0 {
		return location, ""
	}
	file, name = location[:i], location[i+1:]
	if !isManifestFile(file) || strings.ContainsAny(name, `/\`) {
		return location, ""
	}
	return file, name
}
