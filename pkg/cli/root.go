package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/modhost/pkg/async"
	"github.com/platinummonkey/modhost/pkg/config"
	"github.com/platinummonkey/modhost/pkg/host"
	"github.com/platinummonkey/modhost/pkg/loader"
	"github.com/platinummonkey/modhost/pkg/observability"
	"github.com/platinummonkey/modhost/pkg/plugins"
	"github.com/platinummonkey/modhost/pkg/plugins/store"
	"github.com/platinummonkey/modhost/pkg/registrar"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// App is the wired module host a command runs against
type App struct {
	Config   *config.Config
	Log      *logrus.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Host     *host.Manager
	Plugins  *plugins.Manager
	Startup  *host.StartupReport

	store     store.Store
	telemetry *observability.Telemetry
}

// Persistent reports whether plugin states survive the command
func (a *App) Persistent() bool {
	return a.store != nil
}

// Close saves plugin states, terminates every admitted module, then flushes
// telemetry
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.store != nil {
		if err := a.store.Save(ctx, a.Plugins.Snapshot()); err != nil {
			a.Log.Errorf("Failed to save plugin states: %v", err)
		}
		if err := a.store.Close(); err != nil {
			a.Log.Warnf("Failed to close plugin store: %v", err)
		}
	}

	a.Host.Shutdown()

	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.Log.Warnf("Telemetry shutdown failed: %v", err)
	}
}

type options struct {
	configPath string
	logLevel   string
	registrar  *registrar.Registrar
	loader     *loader.Loader
}

// Option configures the root command
type Option func(*options)

// WithRegistrar replaces the builtin registrar
func WithRegistrar(r *registrar.Registrar) Option {
	return func(o *options) {
		o.registrar = r
	}
}

// WithLoader replaces the external module loader
func WithLoader(l *loader.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// NewRootCommand creates the modhost command tree
func NewRootCommand(opts ...Option) *cobra.Command {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	rootCmd := &cobra.Command{
		Use:   "modhost",
		Short: "modhost - load modules and discover their plugins",
		Long: `modhost loads builtin and external modules, initializes them, and asks
each one to discover the plugins it provides.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\n", BuildTime))

	rootCmd.PersistentFlags().StringVar(&o.configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newModulesCommand(o))
	rootCmd.AddCommand(newDiscoverCommand(o))
	rootCmd.AddCommand(newPluginsCommand(o))
	rootCmd.AddCommand(newInstallCommand(o))
	rootCmd.AddCommand(newValidateCommand(o))
	rootCmd.AddCommand(newServeCommand(o))

	return rootCmd
}

// newApp loads the configuration and starts the host
func (o *options) newApp(cmd *cobra.Command) (*App, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	log := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	async.SetLogger(log)

	telemetry, err := observability.InitTelemetry(cmd.Context(), cfg.Telemetry, Version, log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	h := host.NewManager(
		host.WithLogger(log),
		host.WithMetrics(metrics),
		host.WithConfig(cfg),
		host.WithRegistrar(o.registrar),
		host.WithLoader(o.loader),
	)

	report, err := h.Startup(cmd.Context())
	if err != nil {
		h.Shutdown()
		_ = telemetry.Shutdown(context.Background())
		return nil, fmt.Errorf("startup interrupted: %w", err)
	}
	for _, f := range report.Failed() {
		log.WithFields(logrus.Fields{
			"module":   f.Name,
			"kind":     f.Kind,
			"location": f.Location,
		}).Warnf("Module not admitted: %v", f.Err)
	}

	pm := plugins.NewManager(h,
		plugins.WithLogger(log),
		plugins.WithMetrics(metrics),
		plugins.WithValidityCache(cfg.Discovery.ValidityCacheSize, cfg.Discovery.ValidityCacheTTL),
	)

	var st store.Store
	if cfg.Store.Driver != "" {
		st, err = openStore(cmd.Context(), cfg.Store, pm)
		if err != nil {
			h.Shutdown()
			_ = telemetry.Shutdown(context.Background())
			return nil, err
		}
		log.WithField("driver", cfg.Store.Driver).Debug("Plugin states restored")
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Registry: registry,
		Metrics:  metrics,
		Host:     h,
		Plugins:  pm,
		Startup:  report,

		store:     st,
		telemetry: telemetry,
	}, nil
}

// openStore connects to the configured backend and restores saved states
func openStore(ctx context.Context, cfg config.StoreConfig, pm *plugins.Manager) (store.Store, error) {
	st, err := store.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	states, err := st.Load(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	pm.Restore(states)
	return st, nil
}

// run wraps fn so it receives a started App that is closed afterwards
func (o *options) run(fn func(cmd *cobra.Command, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := o.newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(cmd, app, args)
	}
}
