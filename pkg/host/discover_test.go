package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/module/moduletest"
	"github.com/platinummonkey/modhost/pkg/modules/manifest"
	"github.com/platinummonkey/modhost/pkg/registrar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func startedManager(t require.TestingT, fakes ...*moduletest.Fake) *Manager {
	mgr := newTestManager(registrarWith(t, fakes...))
	report, err := mgr.Startup(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err())
	return mgr
}

func TestDiscover_AllPaths(t *testing.T) {
	fake := moduletest.New("effects").WithLocation("p1", 2).WithLocation("p2", 1)
	mgr := startedManager(t, fake)
	pm := moduletest.NewPluginManager()

	summary, err := mgr.Discover(context.Background(), pm, DiscoveryOptions{})
	require.NoError(t, err)
	require.NoError(t, summary.Err())

	require.Len(t, summary.Modules, 1)
	md := summary.Modules[0]
	assert.Equal(t, []string{"p1", "p2"}, md.Candidates)
	require.Len(t, md.Locations, 2)
	assert.Equal(t, "p1", md.Locations[0].Location)
	assert.Equal(t, 2, md.Locations[0].Registered)
	assert.Equal(t, 1, md.Locations[1].Registered)
	assert.Equal(t, 3, summary.Registered())
	assert.Equal(t, []string{"p1#0", "p1#1", "p2#0"}, pm.Paths())

	assert.Equal(t, []string{
		"Initialize",
		"AutoRegisterPlugins",
		"FindPluginPaths",
		"DiscoverPluginsAtPath",
		"DiscoverPluginsAtPath",
	}, fake.Calls())
}

func TestDiscover_SelectAndSkipRegistered(t *testing.T) {
	fake := moduletest.New("effects").WithLocation("p1", 1).WithLocation("p2", 1).WithLocation("p3", 1)
	fake.Paths = append(fake.Paths, "p1")
	mgr := startedManager(t, fake)

	pm := moduletest.NewPluginManager()
	pm.RegisterPlugin(fake, moduletest.NewPlugin("old", "p3"))

	summary, err := mgr.Discover(context.Background(), pm, DiscoveryOptions{
		Select: SelectLocations("p2"),
	})
	require.NoError(t, err)

	md := summary.Modules[0]
	assert.Equal(t, []string{"p1", "p2"}, md.Candidates)
	assert.Equal(t, []string{"p2"}, md.Selected)
	require.Len(t, md.Locations, 1)
	assert.Equal(t, 1, fake.CallCount("DiscoverPluginsAtPath"))
}

func TestDiscover_CustomCallback(t *testing.T) {
	fake := moduletest.New("effects").WithLocation("p1", 3)
	mgr := startedManager(t, fake)

	var seen []string
	summary, err := mgr.Discover(context.Background(), moduletest.NewPluginManager(), DiscoveryOptions{
		Callback: func(m module.Module, p module.Plugin) module.PluginID {
			seen = append(seen, p.Path())
			if p.Path() == "p1#1" {
				return ""
			}
			return module.PluginID(p.Path())
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1#0", "p1#1", "p1#2"}, seen)
	assert.Equal(t, 2, summary.Registered())
}

func TestDiscover_AutoRegisterAndErrors(t *testing.T) {
	fake := moduletest.New("static")
	fake.AutoPlugins = []module.Plugin{moduletest.NewPlugin("builtin-a", "static:a")}
	fake.AutoErr = fmt.Errorf("one plugin missing")
	fake.Paths = []string{"nowhere"}
	mgr := startedManager(t, fake)
	pm := moduletest.NewPluginManager()

	summary, err := mgr.Discover(context.Background(), pm, DiscoveryOptions{})
	require.NoError(t, err)

	assert.True(t, pm.IsPluginRegistered("static:a"))
	md := summary.Modules[0]
	assert.ErrorIs(t, md.AutoErr, fake.AutoErr)
	require.Len(t, md.Locations, 1)
	assert.ErrorIs(t, md.Locations[0].Err, module.ErrUnknownLocation)
	assert.ErrorContains(t, summary.Err(), "static: nowhere:")
}

func TestDiscover_OneBadModuleDoesNotStopOthers(t *testing.T) {
	bad := moduletest.New("bad").WithLocation("b1", 0, "corrupt header")
	good := moduletest.New("good").WithLocation("g1", 2)
	mgr := startedManager(t, bad, good)

	summary, err := mgr.Discover(context.Background(), moduletest.NewPluginManager(), DiscoveryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Registered())
	assert.ErrorContains(t, summary.Err(), "corrupt header")
}

func TestDiscover_PanickingModuleDoesNotStopOthers(t *testing.T) {
	crashy := &crashingModule{Fake: moduletest.New("crashy")}
	good := moduletest.New("good").WithLocation("g1", 2)

	reg := registrarWith(t, good)
	require.NoError(t, reg.Register(crashy.Name(), func(module.Manager, string) module.Module { return crashy }))
	mgr := newTestManager(reg)
	_, err := mgr.Startup(context.Background())
	require.NoError(t, err)

	pm := moduletest.NewPluginManager()
	var summary *DiscoverySummary
	require.NotPanics(t, func() {
		summary, err = mgr.Discover(context.Background(), pm, DiscoveryOptions{})
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Registered())
	assert.ErrorContains(t, summary.Err(), "auto exploded")
	assert.True(t, pm.IsPluginRegistered("g1#0"))

	report, err := mgr.DiscoverAt(context.Background(), "crashy", "elsewhere", pm.RegisterPlugin)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Registered)
	assert.ErrorContains(t, report.Err, "discover exploded")
}

func TestDiscover_NilPluginManager(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fx.yaml")
	require.NoError(t, os.WriteFile(file, []byte("plugins:\n  - {name: gain, kind: effect}\n  - {name: pan, kind: effect}\n"), 0o644))

	reg := registrar.New()
	require.NoError(t, reg.Register(manifest.Name, func(module.Manager, string) module.Module {
		return manifest.New([]string{dir}, nil)
	}))
	mgr := newTestManager(reg)
	_, err := mgr.Startup(context.Background())
	require.NoError(t, err)

	var summary *DiscoverySummary
	require.NotPanics(t, func() {
		summary, err = mgr.Discover(context.Background(), nil, DiscoveryOptions{})
	})
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	assert.Equal(t, 2, summary.Registered())
	require.Len(t, summary.Modules, 1)
	assert.Equal(t, []string{file}, summary.Modules[0].Candidates)
}

func TestDiscover_ModulesFilter(t *testing.T) {
	a := moduletest.New("a").WithLocation("a1", 1)
	b := moduletest.New("b").WithLocation("b1", 1)
	mgr := startedManager(t, a, b)

	summary, err := mgr.Discover(context.Background(), moduletest.NewPluginManager(), DiscoveryOptions{
		Modules: []string{"b", "missing"},
	})
	require.NoError(t, err)

	require.Len(t, summary.Modules, 1)
	assert.Equal(t, "b", summary.Modules[0].Module)
	assert.Equal(t, 0, a.CallCount("FindPluginPaths"))
}

func TestDiscover_CancelledBetweenLocations(t *testing.T) {
	fake := moduletest.New("slow").WithLocation("p1", 1)
	mgr := startedManager(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := mgr.Discover(ctx, moduletest.NewPluginManager(), DiscoveryOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, summary.Modules, 1)
	assert.ErrorIs(t, summary.Modules[0].Interrupted, context.Canceled)
	assert.Equal(t, 0, fake.CallCount("DiscoverPluginsAtPath"))
}

func TestDiscover_PartialSuccess(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		valid := rapid.IntRange(0, 6).Draw(t, "valid")
		invalid := rapid.IntRange(0, 4).Draw(t, "invalid")

		var messages []string
		for i := 0; i < invalid; i++ {
			messages = append(messages, fmt.Sprintf("bad entry %d", i))
		}

		fake := moduletest.New("mixed").WithLocation("loc", valid, messages...)
		mgr := newTestManager(registrarWith(t, fake))
		if _, err := mgr.Startup(context.Background()); err != nil {
			t.Fatalf("startup: %v", err)
		}

		summary, err := mgr.Discover(context.Background(), moduletest.NewPluginManager(), DiscoveryOptions{})
		if err != nil {
			t.Fatalf("discover: %v", err)
		}

		lr := summary.Modules[0].Locations[0]
		if lr.Registered != valid {
			t.Fatalf("registered %d, want %d", lr.Registered, valid)
		}
		if (lr.Err != nil) != (invalid > 0) {
			t.Fatalf("err = %v with %d invalid entries", lr.Err, invalid)
		}
	})
}

func TestDiscoverInBackground(t *testing.T) {
	fake := moduletest.New("bg").WithLocation("p1", 1)
	mgr := startedManager(t, fake)

	select {
	case summary := <-mgr.DiscoverInBackground(context.Background(), moduletest.NewPluginManager(), DiscoveryOptions{}):
		require.NotNil(t, summary)
		assert.Equal(t, 1, summary.Registered())
	case <-time.After(5 * time.Second):
		t.Fatal("background discovery did not finish")
	}
}

func TestDiscoverAt(t *testing.T) {
	fake := moduletest.New("single").WithLocation("p1", 2)
	mgr := startedManager(t, fake)

	report, err := mgr.DiscoverAt(context.Background(), "single", "p1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Registered)

	_, err = mgr.DiscoverAt(context.Background(), "nobody", "p1", nil)
	assert.ErrorIs(t, err, ErrUnknownModule)

	mgr.Shutdown()
	_, err = mgr.DiscoverAt(context.Background(), "single", "p1", nil)
	assert.ErrorIs(t, err, module.ErrNotInitialized)
}

func TestInstall(t *testing.T) {
	dir := t.TempDir()
	installDir := filepath.Join(dir, "installed")
	src := filepath.Join(dir, "drop", "reverb.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("plugins: []"), 0o644))

	never := moduletest.New("never")
	never.Install = filepath.Join(dir, "never")

	accepting := moduletest.New("yaml")
	accepting.Extensions = []string{"YAML"}
	accepting.Install = installDir
	dst := filepath.Join(installDir, "reverb.yaml")
	accepting.Locations[dst] = moduletest.Location{Plugins: []module.Plugin{moduletest.NewPlugin("reverb", dst+"#reverb")}}

	mgr := startedManager(t, never, accepting)
	pm := moduletest.NewPluginManager()

	result, err := mgr.Install(context.Background(), pm, src)
	require.NoError(t, err)

	assert.Equal(t, "yaml", result.Module)
	assert.Equal(t, dst, result.Destination)
	assert.Equal(t, 1, result.Report.Registered)
	assert.True(t, pm.IsPluginRegistered(dst+"#reverb"))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "plugins: []", string(data))

	// reinstalling from the install path leaves the file intact
	_, err = mgr.Install(context.Background(), pm, dst)
	require.NoError(t, err)
	data, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "plugins: []", string(data))

	_, err = mgr.Install(context.Background(), pm, filepath.Join(dir, "song.wav"))
	assert.ErrorIs(t, err, ErrNoInstallTarget)
}

func TestInstall_FailedCopyLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	installDir := filepath.Join(dir, "installed")
	// a directory opens fine but cannot be read as a file
	src := filepath.Join(dir, "bundle.yaml")
	require.NoError(t, os.MkdirAll(src, 0o755))

	accepting := moduletest.New("yaml")
	accepting.Extensions = []string{".yaml"}
	accepting.Install = installDir

	mgr := startedManager(t, accepting)
	_, err := mgr.Install(context.Background(), moduletest.NewPluginManager(), src)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(installDir, "bundle.yaml"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestInstall_AnyExtension(t *testing.T) {
	anyFile := moduletest.New("any")
	anyFile.Extensions = []string{""}
	anyFile.Install = t.TempDir()
	anyFile.AttemptUnknown = true

	noExt := moduletest.New("none")
	noExt.Install = t.TempDir()

	mgr := startedManager(t, noExt, anyFile)

	target, ok := mgr.Target("/tmp/whatever.bin")
	require.True(t, ok)
	assert.Equal(t, "any", target.Name())
}

func TestWatcher(t *testing.T) {
	installDir := filepath.Join(t.TempDir(), "plugins")

	fake := moduletest.New("watched")
	fake.Extensions = []string{".yaml"}
	fake.Install = installDir
	fake.AttemptUnknown = true

	mgr := startedManager(t, fake, moduletest.New("plain"))
	pm := moduletest.NewPluginManager()

	w, err := NewWatcher(mgr, pm)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, []string{filepath.Clean(installDir)}, w.Dirs())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(installDir, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(installDir, "chorus.yaml"), []byte("plugins: []"), 0o644))

	assert.Eventually(t, func() bool {
		return w.Handled() >= 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		return fake.CallCount("DiscoverPluginsAtPath") >= 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestManager_LookupIsGuarded(t *testing.T) {
	fake := moduletest.New("guarded")
	mgr := startedManager(t, fake)

	m, ok := mgr.Lookup("guarded")
	require.True(t, ok)
	_, isEntry := m.(*Entry)
	assert.True(t, isEntry)

	_, ok = mgr.Lookup("missing")
	assert.False(t, ok)

	reg := registrar.New()
	assert.NotNil(t, newTestManager(reg).Registry())
}
