package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	logMu  sync.RWMutex
	logger logrus.FieldLogger = logrus.StandardLogger()
)

// SetLogger replaces the logger used to report recovered panics and errors
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

func log() logrus.FieldLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

func logPanic(taskName string, r interface{}) {
	log().WithFields(logrus.Fields{
		"task":  taskName,
		"panic": fmt.Sprint(r),
		"stack": string(debug.Stack()),
	}).Error("PANIC in background task")
}

// SafeGo executes fn in a goroutine with panic recovery and a timeout.
// A zero timeout only inherits parentCtx's deadline. Errors are logged.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := withTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logPanic(taskName, r)
			}
		}()

		if err := fn(ctx); err != nil {
			log().WithField("task", taskName).Warnf("Background task failed: %v", err)
		}
	}()
}

// Future runs fn in a goroutine and sends its result on the returned channel,
// which is then closed. If fn panics the channel is closed without a value.
func Future[T any](ctx context.Context, taskName string, fn func(context.Context) T) <-chan T {
	out := make(chan T, 1)
	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				logPanic(taskName, r)
			}
		}()
		out <- fn(ctx)
	}()
	return out
}

// Batch runs fn over items with at most workers in flight and returns every
// error, panics included. Items not yet started when ctx is done are skipped
// and reported as ctx.Err().
func Batch[T any](ctx context.Context, items []T, workers int, taskName string, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	if workers < 1 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	sem := make(chan struct{}, workers)
	for _, item := range items {
		select {
		case <-ctx.Done():
			record(ctx.Err())
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer func() { <-sem }()

			taskCtx, cancel := withTimeout(ctx, timeout)
			defer cancel()

			defer func() {
				if r := recover(); r != nil {
					logPanic(taskName, r)
					record(fmt.Errorf("%s: panic: %v", taskName, r))
				}
			}()

			if err := fn(taskCtx, item); err != nil {
				record(err)
			}
		}(item)
	}

	wg.Wait()
	return errs
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
