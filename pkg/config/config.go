package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Modules   ModulesConfig   `yaml:"modules"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Store     StoreConfig     `yaml:"store"`
}

// ModulesConfig controls where external modules are loaded from
type ModulesConfig struct {
	SearchPaths []string `yaml:"search_paths"`
	Disabled    []string `yaml:"disabled"`
	Extension   string   `yaml:"extension"`
}

// DiscoveryConfig controls plugin discovery and revalidation
type DiscoveryConfig struct {
	Concurrency        int           `yaml:"concurrency"`
	ValidityCacheSize  int           `yaml:"validity_cache_size"`
	ValidityCacheTTL   time.Duration `yaml:"validity_cache_ttl"`
	RevalidateSchedule string        `yaml:"revalidate_schedule"`
}

// TelemetryConfig controls OpenTelemetry export over OTLP/gRPC
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// StoreConfig selects where plugin enabled states are persisted. An empty
// driver keeps them in memory only.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// IsDisabled reports whether the module called name is disabled
func (m ModulesConfig) IsDisabled(name string) bool {
	for _, d := range m.Disabled {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Modules: ModulesConfig{
			Extension: ".so",
		},
		Discovery: DiscoveryConfig{
			Concurrency:        4,
			ValidityCacheSize:  1024,
			ValidityCacheTTL:   5 * time.Minute,
			RevalidateSchedule: "@every 10m",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "modhost",
		},
	}
}

// LoadConfig loads configuration from path (optional) and the environment.
// An empty path or a missing file leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if paths := getEnv("MODHOST_MODULE_PATHS", ""); paths != "" {
		cfg.Modules.SearchPaths = filepath.SplitList(paths)
	}
	if disabled := getEnv("MODHOST_DISABLED_MODULES", ""); disabled != "" {
		cfg.Modules.Disabled = splitList(disabled)
	}
	cfg.Modules.Extension = getEnv("MODHOST_MODULE_EXTENSION", cfg.Modules.Extension)

	cfg.Discovery.Concurrency = getEnvInt("MODHOST_DISCOVERY_CONCURRENCY", cfg.Discovery.Concurrency)
	cfg.Discovery.ValidityCacheSize = getEnvInt("MODHOST_VALIDITY_CACHE_SIZE", cfg.Discovery.ValidityCacheSize)
	cfg.Discovery.ValidityCacheTTL = getEnvDuration("MODHOST_VALIDITY_CACHE_TTL", cfg.Discovery.ValidityCacheTTL)
	cfg.Discovery.RevalidateSchedule = getEnv("MODHOST_REVALIDATE_SCHEDULE", cfg.Discovery.RevalidateSchedule)

	cfg.Log.Level = getEnv("MODHOST_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("MODHOST_LOG_FORMAT", cfg.Log.Format)

	cfg.Server.Host = getEnv("MODHOST_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("MODHOST_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("MODHOST_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("MODHOST_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("MODHOST_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Telemetry.Enabled = getEnvBool("MODHOST_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = getEnv("MODHOST_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Insecure = getEnvBool("MODHOST_OTEL_INSECURE", cfg.Telemetry.Insecure)

	cfg.Store.Driver = getEnv("MODHOST_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = getEnv("MODHOST_STORE_DSN", cfg.Store.DSN)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Discovery.Concurrency < 1 {
		return fmt.Errorf("discovery concurrency must be at least 1, got %d", c.Discovery.Concurrency)
	}
	if c.Discovery.ValidityCacheSize < 0 {
		return fmt.Errorf("validity cache size must not be negative")
	}
	if c.Discovery.RevalidateSchedule != "" {
		if _, err := cron.ParseStandard(c.Discovery.RevalidateSchedule); err != nil {
			return fmt.Errorf("invalid revalidate schedule %q: %w", c.Discovery.RevalidateSchedule, err)
		}
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry endpoint is required when telemetry is enabled")
	}

	switch c.Store.Driver {
	case "":
	case "sqlite3", "postgres", "redis":
		if c.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for driver %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be sqlite3, postgres or redis)", c.Store.Driver)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q: %w", c.Server.Port, err)
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
