package module_test

import (
	"testing"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/module/moduletest"
	"github.com/stretchr/testify/assert"
)

func TestDefaultRegistrationCallback(t *testing.T) {
	m := moduletest.New("m")

	id := module.DefaultRegistrationCallback(m, moduletest.NewPlugin("reverb", "/plugins/reverb.yaml#reverb"))
	assert.Equal(t, module.PluginID("/plugins/reverb.yaml#reverb"), id)
	assert.True(t, id.Registered())

	id = module.DefaultRegistrationCallback(m, moduletest.NewPlugin("echo", ""))
	assert.Equal(t, module.PluginID("echo"), id)

	assert.False(t, module.DefaultRegistrationCallback(m, nil).Registered())
}

func TestCallbackOrDefault(t *testing.T) {
	cb := module.CallbackOrDefault(nil)
	assert.Equal(t, module.PluginID("x"), cb(nil, moduletest.NewPlugin("n", "x")))

	custom := func(module.Module, module.Plugin) module.PluginID { return "" }
	cb = module.CallbackOrDefault(custom)
	assert.False(t, cb(nil, moduletest.NewPlugin("n", "x")).Registered())
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, module.StateCreated.CanTransition(module.StateInitialized))
	assert.True(t, module.StateInitialized.CanTransition(module.StateTerminated))
	assert.False(t, module.StateTerminated.CanTransition(module.StateInitialized))
	assert.False(t, module.StateCreated.CanTransition(module.StateTerminated))
	assert.False(t, module.StateInitialized.CanTransition(module.StateCreated))
	assert.False(t, module.StateTerminated.CanTransition(module.State(3)))

	assert.Equal(t, "created", module.StateCreated.String())
	assert.Equal(t, "initialized", module.StateInitialized.String())
	assert.Equal(t, "terminated", module.StateTerminated.String())
	assert.Equal(t, "state(7)", module.State(7).String())
}

func TestIdentOf(t *testing.T) {
	p := moduletest.NewPlugin("reverb", "/x")
	id := module.IdentOf(p)
	assert.Equal(t, "reverb", id.Name())
	assert.Equal(t, "/x", id.Path())
	assert.Equal(t, "1.0.0", id.Version())

	assert.Equal(t, module.Ident{}, module.IdentOf(nil))
}
