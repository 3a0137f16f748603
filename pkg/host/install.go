package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/platinummonkey/modhost/pkg/module"
)

// InstallResult describes a dropped file that was installed
type InstallResult struct {
	Module      string          `json:"module"`
	Destination string          `json:"destination"`
	Report      *LocationReport `json:"report"`
}

// Target returns the first admitted module that accepts filename for
// drag-and-drop install
func (m *Manager) Target(filename string) (*Entry, bool) {
	for _, e := range m.registry.List() {
		if e.State() == module.StateInitialized && module.AcceptsFile(e, filename) {
			return e, true
		}
	}
	return nil, false
}

// Install copies src into the install path of the first module accepting it,
// then discovers plugins at the copied file.
func (m *Manager) Install(ctx context.Context, pm module.PluginManager, src string) (*InstallResult, error) {
	e, ok := m.Target(src)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoInstallTarget, filepath.Base(src))
	}

	dst, err := copyInto(src, e.InstallPath())
	if err != nil {
		return nil, fmt.Errorf("failed to install %s into %s: %w", src, e.Name(), err)
	}
	m.log.Infof("Installed %s for module %s", dst, e.Name())

	var cb module.RegistrationCallback
	if pm != nil {
		cb = pm.RegisterPlugin
	}

	report, err := m.DiscoverAt(ctx, e.Name(), dst, cb)
	if err != nil {
		return nil, err
	}

	return &InstallResult{
		Module:      e.Name(),
		Destination: dst,
		Report:      report,
	}, nil
}

func copyInto(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, filepath.Base(src))
	if sameFile(src, dst) {
		return dst, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
