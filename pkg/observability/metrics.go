package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the module host's Prometheus metrics
type Metrics struct {
	// Module lifecycle
	ModuleLoadsTotal       *prometheus.CounterVec
	ModuleInitFailureTotal *prometheus.CounterVec
	ModulesRegistered      prometheus.Gauge

	// Discovery
	PluginsRegisteredTotal *prometheus.CounterVec
	DiscoveryErrorsTotal   *prometheus.CounterVec
	DiscoveryDuration      *prometheus.HistogramVec

	// Plugins
	PluginsKnown    prometheus.Gauge
	PluginsStale    prometheus.Gauge
	InstancesActive *prometheus.GaugeVec
}

// NewMetrics creates and registers all metrics with registry
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ModuleLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modhost_module_loads_total",
				Help: "Total number of module load attempts",
			},
			[]string{"kind", "result"},
		),
		ModuleInitFailureTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modhost_module_init_failures_total",
				Help: "Total number of modules discarded because Initialize failed",
			},
			[]string{"kind"},
		),
		ModulesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "modhost_modules_registered",
				Help: "Number of modules in the registry",
			},
		),
		PluginsRegisteredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modhost_plugins_registered_total",
				Help: "Total number of plugins registered during discovery",
			},
			[]string{"module"},
		),
		DiscoveryErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modhost_discovery_errors_total",
				Help: "Total number of discovery calls that reported an error",
			},
			[]string{"module", "stage"},
		),
		DiscoveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modhost_discovery_duration_seconds",
				Help:    "Time spent discovering plugins per module",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"module"},
		),
		PluginsKnown: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "modhost_plugins_known",
				Help: "Number of plugins known to the plugin manager",
			},
		),
		PluginsStale: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "modhost_plugins_stale",
				Help: "Number of plugins whose location no longer validates",
			},
		),
		InstancesActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modhost_instances_active",
				Help: "Number of plugin instances handed out and not yet released",
			},
			[]string{"module"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.ModuleLoadsTotal,
			m.ModuleInitFailureTotal,
			m.ModulesRegistered,
			m.PluginsRegisteredTotal,
			m.DiscoveryErrorsTotal,
			m.DiscoveryDuration,
			m.PluginsKnown,
			m.PluginsStale,
			m.InstancesActive,
		)
	}

	return m
}

// MetricsHandler serves the metrics gathered by registry
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
