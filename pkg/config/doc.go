// Package config loads the module host configuration.
//
// Values come from three layers, later layers winning:
//
//  1. DefaultConfig
//  2. an optional YAML file
//  3. MODHOST_* environment variables
//
// Example file:
//
//	modules:
//	  search_paths: [/usr/lib/modhost]
//	  disabled: [legacy]
//	discovery:
//	  concurrency: 4
//	  validity_cache_ttl: 5m
//	log:
//	  level: debug
//	  format: json
//	server:
//	  port: "8080"
//	store:
//	  driver: sqlite3
//	  dsn: /var/lib/modhost/plugins.db
//
// Environment variables:
//
//	MODHOST_MODULE_PATHS          colon separated external module directories
//	MODHOST_DISABLED_MODULES      comma separated module names to skip
//	MODHOST_MODULE_EXTENSION      shared object extension (default .so)
//	MODHOST_DISCOVERY_CONCURRENCY modules discovered in parallel
//	MODHOST_VALIDITY_CACHE_SIZE   entries kept by the fast validity cache
//	MODHOST_VALIDITY_CACHE_TTL    lifetime of a cached validity result
//	MODHOST_REVALIDATE_SCHEDULE   cron schedule for fast revalidation
//	MODHOST_LOG_LEVEL             debug, info, warn, error
//	MODHOST_LOG_FORMAT            text or json
//	MODHOST_HOST, MODHOST_PORT    HTTP listen address
//	MODHOST_OTEL_ENABLED          export traces and metrics over OTLP/gRPC
//	MODHOST_OTEL_ENDPOINT         collector address (default localhost:4317)
//	MODHOST_OTEL_INSECURE         disable TLS towards the collector
//	MODHOST_STORE_DRIVER          sqlite3, postgres or redis
//	MODHOST_STORE_DSN             store connection string or file
package config
