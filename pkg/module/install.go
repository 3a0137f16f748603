package module

import (
	"path/filepath"
	"strings"
)

// SupportsInstall reports whether m accepts drag-and-drop installation.
// Both an install path and at least one extension are required.
func SupportsInstall(m Module) bool {
	if m == nil {
		return false
	}
	return m.InstallPath() != "" && len(m.FileExtensions()) > 0
}

// AcceptsFile reports whether m would install filename by drag-and-drop
func AcceptsFile(m Module, filename string) bool {
	if !SupportsInstall(m) {
		return false
	}
	return MatchesExtension(m.FileExtensions(), filename)
}

// MatchesExtension reports whether filename carries one of exts. An empty
// element matches any file. Comparison ignores case and a leading dot.
func MatchesExtension(exts []string, filename string) bool {
	ext := normalizeExtension(filepath.Ext(filename))
	for _, candidate := range exts {
		candidate = normalizeExtension(candidate)
		if candidate == "" || candidate == ext {
			return true
		}
	}
	return false
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
