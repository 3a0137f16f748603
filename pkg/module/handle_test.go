package module_test

import (
	"testing"

	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/module/moduletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initializedFake(t *testing.T, name string) *moduletest.Fake {
	t.Helper()
	m := moduletest.New(name).WithLocation("p1", 1)
	require.NoError(t, m.Initialize())
	return m
}

func TestAcquireRelease(t *testing.T) {
	m := initializedFake(t, "owner")

	h, err := module.Acquire(m, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.LiveInstances())
	assert.Same(t, m, h.Owner())
	assert.Equal(t, "p1", h.Location())
	assert.NotNil(t, h.Plugin())
	assert.False(t, h.Released())

	require.NoError(t, h.Release())
	assert.Equal(t, 0, m.LiveInstances())
	assert.Nil(t, h.Plugin())
	assert.True(t, h.Released())

	// A second release never reaches the module
	err = h.Release()
	assert.ErrorIs(t, err, module.ErrInstanceReleased)
	assert.Equal(t, 1, m.CallCount("DeleteInstance"))
	assert.Empty(t, m.Violations())
}

func TestAcquire_CreateFails(t *testing.T) {
	m := initializedFake(t, "owner")

	h, err := module.Acquire(m, "missing")
	assert.Nil(t, h)
	assert.ErrorIs(t, err, module.ErrUnknownLocation)
}

func TestAcquire_NilModule(t *testing.T) {
	h, err := module.Acquire(nil, "p1")
	assert.Nil(t, h)
	assert.Error(t, err)
}

func TestDeleteInstance_ForeignRejected(t *testing.T) {
	a := initializedFake(t, "a")
	b := initializedFake(t, "b")

	instance, err := a.CreateInstance("p1")
	require.NoError(t, err)

	err = b.DeleteInstance(instance)
	assert.ErrorIs(t, err, module.ErrForeignInstance)
	assert.Equal(t, 1, a.LiveInstances())

	require.NoError(t, a.DeleteInstance(instance))
	assert.Equal(t, 0, a.LiveInstances())
}
