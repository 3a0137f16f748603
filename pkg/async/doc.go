// Package async runs background work with panic recovery and timeouts.
//
// SafeGo fires and forgets:
//
//	async.SafeGo(ctx, 30*time.Second, "install watcher", func(ctx context.Context) error {
//		return watcher.Run(ctx)
//	})
//
// Future runs a task and delivers its result on a channel, which is how the
// host offloads plugin discovery:
//
//	done := async.Future(ctx, "discover plugins", func(ctx context.Context) *host.DiscoverySummary {
//		summary, _ := mgr.Discover(ctx, pm, opts)
//		return summary
//	})
//
// Batch processes items with bounded concurrency and collects their errors.
//
// Panics are recovered and logged through the package logger, which defaults
// to the logrus standard logger and can be replaced with SetLogger.
package async
