package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(Discard(), time.Second)

	var order []string
	for _, name := range []string{"store", "watcher", "server"} {
		name := name
		sm.Register(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, []string{"server", "watcher", "store"}, order)
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(Discard(), time.Second)
	sentinel := errors.New("close failed")

	ran := false
	sm.Register("first", func(ctx context.Context) error {
		ran = true
		return nil
	})
	sm.Register("second", func(ctx context.Context) error { return sentinel })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "second")
	assert.True(t, ran)
}

func TestShutdownManager_RunsOnce(t *testing.T) {
	sm := NewShutdownManager(Discard(), time.Second)
	calls := 0
	sm.Register("counter", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, sm.Shutdown())
	require.NoError(t, sm.Shutdown())
	assert.Equal(t, 1, calls)
}

func TestShutdownManager_WaitForShutdownContext(t *testing.T) {
	sm := NewShutdownManager(Discard(), time.Second)
	called := false
	sm.Register("flag", func(ctx context.Context) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, sm.WaitForShutdown(ctx))
	assert.True(t, called)
}

func TestShutdownManager_StepsShareDeadline(t *testing.T) {
	sm := NewShutdownManager(Discard(), 10*time.Millisecond)
	sm.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := sm.Shutdown()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
