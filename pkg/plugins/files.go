package plugins

import (
	"os"
	"path/filepath"
	"sort"
)

// FindFilesInPathList returns the files under dirs whose base name matches the
// glob pattern. Missing directories are skipped; the result is sorted and free
// of duplicates.
func (m *Manager) FindFilesInPathList(pattern string, dirs []string, recursive bool) []string {
	seen := make(map[string]struct{})
	var found []string

	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		found = append(found, path)
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			m.log.Debugf("Plugin directory does not exist: %s", dir)
			continue
		}

		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				m.log.Warnf("Failed to read plugin directory %s: %v", path, err)
				return nil
			}
			if d.IsDir() {
				if path != dir && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			m.log.Warnf("Failed to scan plugin directory %s: %v", dir, err)
		}
	}

	sort.Strings(found)
	return found
}
