package host

import (
	"errors"
	"testing"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/module/moduletest"
	"github.com/platinummonkey/modhost/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickyModule struct {
	*moduletest.Fake
	initPanics      bool
	terminatePanics bool
}

func (p *panickyModule) Initialize() error {
	if p.initPanics {
		panic("init exploded")
	}
	return p.Fake.Initialize()
}

func (p *panickyModule) Terminate() {
	p.Fake.Terminate()
	if p.terminatePanics {
		panic("terminate exploded")
	}
}

// crashingModule panics in every discovery and instance call once
// initialized. DiscoverPluginsAtPath registers one plugin before panicking.
type crashingModule struct {
	*moduletest.Fake
}

func (c *crashingModule) AutoRegisterPlugins(module.PluginManager) error {
	panic("auto exploded")
}

func (c *crashingModule) FindPluginPaths(module.PluginManager) []string {
	panic("find exploded")
}

func (c *crashingModule) DiscoverPluginsAtPath(location string, cb module.RegistrationCallback) (int, error) {
	cb(c, moduletest.NewPlugin("first", location+"#0"))
	panic("discover exploded")
}

func (c *crashingModule) IsPluginValid(string, bool) bool {
	panic("validate exploded")
}

func (c *crashingModule) CreateInstance(string) (module.Plugin, error) {
	panic("create exploded")
}

func (c *crashingModule) DeleteInstance(module.Plugin) error {
	panic("delete exploded")
}

func testEntry(mod module.Module) *Entry {
	log, _ := test.NewNullLogger()
	return newEntry(mod, KindBuiltin, "", log, observability.NewMetrics(nil))
}

func TestEntry_RefusesCallsBeforeInitialize(t *testing.T) {
	fake := moduletest.New("early").WithLocation("loc", 1)
	e := testEntry(fake)

	assert.ErrorIs(t, e.AutoRegisterPlugins(moduletest.NewPluginManager()), module.ErrNotInitialized)
	assert.Nil(t, e.FindPluginPaths(moduletest.NewPluginManager()))
	_, err := e.DiscoverPluginsAtPath("loc", nil)
	assert.ErrorIs(t, err, module.ErrNotInitialized)
	assert.False(t, e.IsPluginValid("loc", true))
	_, err = e.CreateInstance("loc#0")
	assert.ErrorIs(t, err, module.ErrNotInitialized)

	e.Terminate()
	assert.Empty(t, fake.Calls())
	assert.Equal(t, module.StateCreated, e.State())
}

func TestEntry_FailedInitializeDiscardsModule(t *testing.T) {
	fake := moduletest.New("broken").WithLocation("loc", 2)
	fake.InitErr = errors.New("missing dependency")
	e := testEntry(fake)

	err := e.Initialize()
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "broken", initErr.Module)
	assert.ErrorIs(t, err, fake.InitErr)

	assert.ErrorIs(t, e.Initialize(), module.ErrNotInitialized)
	e.Terminate()
	assert.Nil(t, e.FindPluginPaths(moduletest.NewPluginManager()))
	_, err = e.DiscoverPluginsAtPath("loc", nil)
	assert.ErrorIs(t, err, module.ErrNotInitialized)

	assert.Equal(t, []string{"Initialize"}, fake.Calls())
}

func TestEntry_InitializePanicBecomesInitError(t *testing.T) {
	mod := &panickyModule{Fake: moduletest.New("panicky"), initPanics: true}
	e := testEntry(mod)

	err := e.Initialize()
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Contains(t, err.Error(), "init exploded")
}

func TestEntry_Lifecycle(t *testing.T) {
	fake := moduletest.New("cycle").WithLocation("loc", 1)
	e := testEntry(fake)

	require.NoError(t, e.Initialize())
	assert.ErrorIs(t, e.Initialize(), module.ErrAlreadyInitialized)
	assert.Equal(t, module.StateInitialized, e.State())

	e.Terminate()
	e.Terminate()
	assert.Equal(t, 1, fake.CallCount("Terminate"))
	assert.Equal(t, module.StateTerminated, e.State())

	assert.ErrorIs(t, e.Initialize(), module.ErrTerminated)
	_, err := e.DiscoverPluginsAtPath("loc", nil)
	assert.ErrorIs(t, err, module.ErrTerminated)
	assert.ErrorIs(t, e.DeleteInstance(moduletest.NewPlugin("x", "loc#0")), module.ErrTerminated)
	assert.Nil(t, e.FileExtensions())
	assert.Empty(t, e.InstallPath())

	assert.Empty(t, fake.Violations())
}

func TestEntry_TerminatePanicIsRecovered(t *testing.T) {
	mod := &panickyModule{Fake: moduletest.New("noisy"), terminatePanics: true}
	e := testEntry(mod)
	require.NoError(t, e.Initialize())

	assert.NotPanics(t, e.Terminate)
	assert.Equal(t, module.StateTerminated, e.State())
}

func TestEntry_CallbackSeesEntry(t *testing.T) {
	fake := moduletest.New("wrapped").WithLocation("loc", 2)
	e := testEntry(fake)
	require.NoError(t, e.Initialize())

	var owners []module.Module
	n, err := e.DiscoverPluginsAtPath("loc", func(m module.Module, p module.Plugin) module.PluginID {
		owners = append(owners, m)
		return module.PluginID(p.Path())
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, owner := range owners {
		assert.Same(t, e, owner)
	}
}

func TestEntry_AutoRegisterSeesEntry(t *testing.T) {
	fake := moduletest.New("auto")
	fake.AutoPlugins = []module.Plugin{moduletest.NewPlugin("fixed", "auto:fixed")}
	e := testEntry(fake)
	require.NoError(t, e.Initialize())

	pm := moduletest.NewPluginManager()
	require.NoError(t, e.AutoRegisterPlugins(pm))
	assert.Same(t, e, pm.Owner("auto:fixed"))
}

func TestEntry_InstancesTracked(t *testing.T) {
	fake := moduletest.New("inst").WithLocation("loc", 1)
	e := testEntry(fake)
	require.NoError(t, e.Initialize())

	h, err := module.Acquire(e, "loc#0")
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.InstancesActive.WithLabelValues("inst")))

	require.NoError(t, h.Release())
	assert.ErrorIs(t, h.Release(), module.ErrInstanceReleased)
	assert.Equal(t, float64(0), testutil.ToFloat64(e.metrics.InstancesActive.WithLabelValues("inst")))
	assert.Equal(t, 0, fake.LiveInstances())

	assert.ErrorIs(t, e.DeleteInstance(moduletest.NewPlugin("stranger", "loc#0")), module.ErrForeignInstance)
	assert.ErrorIs(t, e.DeleteInstance(nil), module.ErrNilInstance)
}

func TestEntry_ModulePanicsBecomeErrors(t *testing.T) {
	e := testEntry(&crashingModule{Fake: moduletest.New("crashy")})
	require.NoError(t, e.Initialize())

	err := e.AutoRegisterPlugins(moduletest.NewPluginManager())
	assert.ErrorIs(t, err, observability.ErrPanic)
	assert.ErrorContains(t, err, "auto exploded")

	assert.NotPanics(t, func() {
		assert.Nil(t, e.FindPluginPaths(moduletest.NewPluginManager()))
	})

	var seen []string
	n, err := e.DiscoverPluginsAtPath("loc", func(m module.Module, p module.Plugin) module.PluginID {
		seen = append(seen, p.Path())
		return module.PluginID(p.Path())
	})
	assert.ErrorIs(t, err, observability.ErrPanic)
	assert.ErrorContains(t, err, "crashy")
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"loc#0"}, seen)

	assert.False(t, e.IsPluginValid("loc#0", true))

	inst, err := e.CreateInstance("loc#0")
	assert.Nil(t, inst)
	assert.ErrorIs(t, err, observability.ErrPanic)
	assert.ErrorIs(t, e.DeleteInstance(moduletest.NewPlugin("x", "loc#0")), observability.ErrPanic)
	assert.Equal(t, float64(0), testutil.ToFloat64(e.metrics.InstancesActive.WithLabelValues("crashy")))

	assert.Equal(t, module.StateInitialized, e.State())
	assert.NotPanics(t, e.Terminate)
}
