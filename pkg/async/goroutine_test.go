package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger(t *testing.T) *test.Hook {
	t.Helper()
	l, hook := test.NewNullLogger()
	SetLogger(l)
	t.Cleanup(func() { SetLogger(nil) })
	return hook
}

func TestSafeGo_Success(t *testing.T) {
	quietLogger(t)
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test task", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo did not execute function")
	}
}

func TestSafeGo_Timeout(t *testing.T) {
	quietLogger(t)
	result := make(chan error, 1)

	SafeGo(context.Background(), 20*time.Millisecond, "test task", func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timeout was not enforced")
	}
}

func TestSafeGo_PanicRecovery(t *testing.T) {
	hook := quietLogger(t)

	SafeGo(context.Background(), time.Second, "panicky", func(ctx context.Context) error {
		panic("test panic")
	})

	assert.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.ErrorLevel && e.Data["task"] == "panicky" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestFuture(t *testing.T) {
	quietLogger(t)

	got, ok := <-Future(context.Background(), "answer", func(ctx context.Context) int { return 42 })
	assert.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestFuture_Panic(t *testing.T) {
	quietLogger(t)

	got, ok := <-Future(context.Background(), "broken", func(ctx context.Context) *int { panic("nope") })
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestBatch(t *testing.T) {
	quietLogger(t)
	var sum atomic.Int64

	errs := Batch(context.Background(), []int{1, 2, 3, 4, 5}, 2, "sum", time.Second,
		func(ctx context.Context, n int) error {
			sum.Add(int64(n))
			if n%2 == 0 {
				return errors.New("even")
			}
			return nil
		})

	assert.Equal(t, int64(15), sum.Load())
	assert.Len(t, errs, 2)
}

func TestBatch_BoundsConcurrency(t *testing.T) {
	quietLogger(t)
	var inFlight, peak atomic.Int32

	Batch(context.Background(), make([]struct{}, 20), 3, "bounded", time.Second,
		func(ctx context.Context, _ struct{}) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		})

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestBatch_PanicBecomesError(t *testing.T) {
	quietLogger(t)

	errs := Batch(context.Background(), []string{"a"}, 1, "explode", 0,
		func(ctx context.Context, s string) error { panic(s) })

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "panic: a")
}

func TestBatch_CancelledContext(t *testing.T) {
	quietLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	errs := Batch(ctx, []int{1, 2, 3}, 1, "cancelled", time.Second,
		func(ctx context.Context, n int) error {
			ran.Add(1)
			return nil
		})

	// select may pick the semaphore send for some items; every item is either
	// run or reported.
	assert.Equal(t, 3, int(ran.Load())+len(errs))
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
