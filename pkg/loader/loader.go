package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/sirupsen/logrus"
)

// DefaultExtension is the file extension of external modules
const DefaultExtension = ".so"

// Library is an opened shared object
type Library interface {
	Lookup(name string) (plugin.Symbol, error)
}

// Opener opens the shared object at path
type Opener func(path string) (Library, error)

// OpenPlugin opens path with the Go plugin package
func OpenPlugin(path string) (Library, error) {
	return plugin.Open(path)
}

// Loader resolves and invokes entry points of external modules
type Loader struct {
	open      Opener
	extension string
	log       *logrus.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithOpener replaces the shared object opener
func WithOpener(open Opener) Option {
	return func(l *Loader) {
		l.open = open
	}
}

// WithExtension sets the extension Scan looks for
func WithExtension(ext string) Option {
	return func(l *Loader) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		l.extension = ext
	}
}

// New creates a loader backed by the Go plugin package
func New(log *logrus.Logger, opts ...Option) *Loader {
	if log == nil {
		log = logrus.New()
	}

	l := &Loader{
		open:      OpenPlugin,
		extension: DefaultExtension,
		log:       log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Resolve opens location and returns its entry point
func (l *Loader) Resolve(location string) (module.EntryPoint, error) {
	lib, err := l.open(location)
	if err != nil {
		return nil, newLoadError(location, OpOpen, ErrOpen, err)
	}

	sym, err := lib.Lookup(module.EntrySymbol)
	if err != nil {
		return nil, newLoadError(location, OpLookup, ErrSymbolNotFound, err)
	}

	entry, err := asEntryPoint(sym)
	if err != nil {
		return nil, &LoadError{Location: location, Op: OpSymbol, Err: err}
	}

	return entry, nil
}

// Load resolves location's entry point and invokes it with mgr
func (l *Loader) Load(mgr module.Manager, location string) (m module.Module, err error) {
	entry, err := l.Resolve(location)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = newLoadError(location, OpEntry, ErrNilModule, fmt.Errorf("entry point panicked: %v", r))
		}
	}()

	m = entry(mgr, location)
	if m == nil {
		return nil, newLoadError(location, OpEntry, ErrNilModule, nil)
	}

	l.log.Debugf("Resolved module %s from %s", m.Name(), location)
	return m, nil
}

// Scan lists candidate external modules in dirs. Missing directories are
// skipped; the result is sorted and free of duplicates.
func (l *Loader) Scan(dirs []string) []string {
	seen := make(map[string]struct{})
	var found []string

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			l.log.Debugf("Module directory does not exist: %s", dir)
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			l.log.Warnf("Failed to read module directory %s: %v", dir, err)
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), l.extension) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			found = append(found, path)
		}
	}

	sort.Strings(found)
	return found
}

func asEntryPoint(sym plugin.Symbol) (module.EntryPoint, error) {
	switch fn := sym.(type) {
	case func(module.Manager, string) module.Module:
		return fn, nil
	case module.EntryPoint:
		return fn, nil
	case *module.EntryPoint:
		if fn == nil || *fn == nil {
			return nil, fmt.Errorf("%w: nil entry point variable", ErrSymbolType)
		}
		return *fn, nil
	case *func(module.Manager, string) module.Module:
		if fn == nil || *fn == nil {
			return nil, fmt.Errorf("%w: nil entry point variable", ErrSymbolType)
		}
		return *fn, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrSymbolType, sym)
	}
}
