// Package observability provides logging setup, Prometheus metrics, tracing and
// graceful shutdown for the module host.
//
// # Logging
//
//	log := observability.NewLogger("debug", "text", os.Stderr)
//	log.WithField("module", name).Info("Module initialized")
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ModuleLoadsTotal.WithLabelValues("builtin", "ok").Inc()
//
// # Tracing
//
// Spans are created through the global OpenTelemetry tracer provider, which is
// a no-op until InitTelemetry installs OTLP exporters or the embedding
// application installs its own provider.
//
//	ctx, span := observability.StartSpan(ctx, "host.discover")
//	defer span.End()
//
// # Shutdown
//
// Steps run last registered first.
//
//	sm := observability.NewShutdownManager(log, 30*time.Second)
//	sm.Register("watcher", func(context.Context) error { return watcher.Close() })
//	sm.Register("http server", server.Shutdown)
//	sm.WaitForShutdown(ctx)
package observability
