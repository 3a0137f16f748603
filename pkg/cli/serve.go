package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/platinummonkey/modhost/pkg/api"
	"github.com/platinummonkey/modhost/pkg/async"
	"github.com/platinummonkey/modhost/pkg/host"
	"github.com/platinummonkey/modhost/pkg/observability"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func newServeCommand(o *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the host over HTTP",
		Long: `Start the HTTP API, run an initial discovery in the background, watch module
install paths for new files and revalidate plugins on the configured schedule.`,
		Args: cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, app *App, args []string) error {
			if addr != "" {
				h, port, err := net.SplitHostPort(addr)
				if err != nil {
					return fmt.Errorf("invalid listen address %q: %w", addr, err)
				}
				app.Config.Server.Host = h
				app.Config.Server.Port = port
			}
			return serve(cmd.Context(), app)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides the configured host and port")

	return cmd
}

func serve(ctx context.Context, app *App) error {
	log := app.Log
	cfg := app.Config

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := app.Host.DiscoverInBackground(ctx, app.Plugins, host.DiscoveryOptions{})
	async.SafeGo(ctx, 0, "initial discovery", func(ctx context.Context) error {
		select {
		case summary, ok := <-done:
			if ok {
				log.Infof("Initial discovery registered %d plugins", summary.Registered())
				return summary.Err()
			}
		case <-ctx.Done():
		}
		return nil
	})

	scheduler, err := newScheduler(ctx, app)
	if err != nil {
		return err
	}
	scheduler.Start()

	watcher, err := host.NewWatcher(app.Host, app.Plugins)
	if err != nil {
		log.Warnf("Install paths will not be watched: %v", err)
	} else {
		async.SafeGo(ctx, 0, "install watcher", watcher.Run)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(api.NewServer(app.Host, app.Plugins, app.Registry, log), "modhost"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := observability.NewShutdownManager(log, cfg.Server.ShutdownTimeout)
	shutdown.Register("background work", func(context.Context) error {
		cancel()
		return nil
	})
	if watcher != nil {
		shutdown.Register("install watcher", func(context.Context) error {
			return watcher.Close()
		})
	}
	shutdown.Register("revalidation scheduler", func(ctx context.Context) error {
		stopped := scheduler.Stop()
		select {
		case <-stopped.Done():
			return nil
		case <-ctx.Done():
			return fmt.Errorf("revalidation still running: %w", ctx.Err())
		}
	})
	shutdown.Register("http server", server.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting modhost server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server failed: %v", err)
			serveErr <- err
			cancel()
		}
	}()

	shutdownErr := shutdown.WaitForShutdown(ctx)
	select {
	case err := <-serveErr:
		return err
	default:
	}
	return shutdownErr
}

// newScheduler returns a cron scheduler running a fast revalidation of every
// registered plugin on the configured schedule
func newScheduler(ctx context.Context, app *App) (*cron.Cron, error) {
	c := cron.New()
	schedule := app.Config.Discovery.RevalidateSchedule
	if schedule == "" {
		app.Log.Info("Scheduled revalidation is disabled")
		return c, nil
	}

	_, err := c.AddFunc(schedule, func() {
		report, err := app.Plugins.Revalidate(ctx, true)
		if err != nil {
			app.Log.Warnf("Scheduled revalidation failed: %v", err)
			return
		}
		if len(report.Stale) > 0 {
			app.Log.Warnf("%d plugins are no longer valid", len(report.Stale))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule revalidation %q: %w", schedule, err)
	}
	return c, nil
}
