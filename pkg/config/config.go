package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/unitgraph/pkg/storage"
)

// envPrefix is prepended to every variable name
const envPrefix = "UNITGRAPH_"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Storage       storage.Config
	Observability ObservabilityConfig
	Integrity     IntegrityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
	OTelSampleRatio    float64
}

// IntegrityConfig holds the periodic audit schedule and the seed file
type IntegrityConfig struct {
	// AuditSchedule is a cron expression; empty disables the audit
	AuditSchedule string

	SeedFile  string
	SeedWatch bool
}

// LoadConfig loads configuration from the process environment. Malformed
// values are errors, not silently replaced by defaults.
func LoadConfig() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	e := &env{lookup: lookup}
	cfg := &Config{
		Server:        e.server(),
		Storage:       e.storage(),
		Observability: e.observability(),
		Integrity:     e.integrity(),
	}
	if err := errors.Join(e.errs...); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// env reads prefixed variables and records every value it cannot parse
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) raw(key string) (string, bool) {
	v, ok := e.lookup(envPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) str(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e *env) boolean(key string, def bool) bool {
	return parse(e, key, def, strconv.ParseBool)
}

func (e *env) integer(key string, def int) int {
	return parse(e, key, def, strconv.Atoi)
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	return parse(e, key, def, time.ParseDuration)
}

func (e *env) float(key string, def float64) float64 {
	return parse(e, key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func parse[T any](e *env, key string, def T, fn func(string) (T, error)) T {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	parsed, err := fn(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s=%q: %w", envPrefix, key, v, err))
		return def
	}
	return parsed
}

func (e *env) server() ServerConfig {
	return ServerConfig{
		Host:            e.str("HOST", "0.0.0.0"),
		Port:            e.str("PORT", "8080"),
		ReadTimeout:     e.duration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    e.duration("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     e.duration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      e.str("HEALTH_PORT", "9090"),
	}
}

func (e *env) storage() storage.Config {
	cfg := storage.DefaultConfig()

	cfg.Type = strings.ToLower(e.str("STORAGE_TYPE", cfg.Type))

	cfg.PostgresURL = e.str("POSTGRES_URL", cfg.PostgresURL)
	cfg.PostgresMaxConns = e.integer("POSTGRES_MAX_CONNS", cfg.PostgresMaxConns)
	cfg.PostgresMinConns = e.integer("POSTGRES_MIN_CONNS", cfg.PostgresMinConns)
	cfg.PostgresTimeout = e.duration("POSTGRES_TIMEOUT", cfg.PostgresTimeout)

	cfg.SQLitePath = e.str("SQLITE_PATH", cfg.SQLitePath)

	cfg.RedisURL = e.str("REDIS_URL", cfg.RedisURL)
	cfg.RedisPassword = e.str("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = e.integer("REDIS_DB", cfg.RedisDB)
	cfg.RedisMaxRetries = e.integer("REDIS_MAX_RETRIES", cfg.RedisMaxRetries)
	cfg.RedisPoolSize = e.integer("REDIS_POOL_SIZE", cfg.RedisPoolSize)

	cfg.CacheEnabled = e.boolean("CACHE_ENABLED", cfg.CacheEnabled)
	cfg.L1CacheSize = e.integer("L1_CACHE_ENTRIES", cfg.L1CacheSize)
	// One TTL covers every closure kind.
	if ttl := e.duration("CLOSURE_CACHE_TTL", 0); ttl > 0 {
		for kind := range cfg.CacheTTL {
			cfg.CacheTTL[kind] = ttl
		}
	}
	return cfg
}

func (e *env) observability() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(e.str("LOG_FORMAT", "json")),
		MetricsEnabled:     e.boolean("METRICS_ENABLED", true),
		OTelEnabled:        e.boolean("OTEL_ENABLED", false),
		OTelEndpoint:       e.str("OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    e.str("OTEL_SERVICE_NAME", "unitgraph"),
		OTelServiceVersion: e.str("OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       e.boolean("OTEL_INSECURE", true),
		OTelSampleRatio:    e.float("OTEL_SAMPLE_RATIO", 1),
	}
}

func (e *env) integrity() IntegrityConfig {
	return IntegrityConfig{
		AuditSchedule: e.str("AUDIT_SCHEDULE", "@every 1h"),
		SeedFile:      e.str("SEED_FILE", ""),
		SeedWatch:     e.boolean("SEED_WATCH", false),
	}
}

// Validate reports every problem with the configuration at once
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch {
	case c.Server.Port == "":
		fail("server port is required")
	case c.Server.HealthPort == "":
		fail("health port is required")
	case c.Server.Port == c.Server.HealthPort:
		fail("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			fail("postgres URL is required for postgres storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			fail("sqlite path is required for sqlite storage")
		}
	default:
		fail("invalid storage type: %s (must be memory, postgres, or sqlite)", c.Storage.Type)
	}
	if c.Storage.CacheEnabled && c.Storage.RedisURL == "" && c.Storage.L1CacheSize <= 0 {
		fail("L1 cache size must be positive when the in-process cache is enabled")
	}

	if _, err := logrus.ParseLevel(c.Observability.LogLevel); err != nil {
		fail("invalid log level: %s", c.Observability.LogLevel)
	}
	if c.Observability.LogFormat != "json" && c.Observability.LogFormat != "text" {
		fail("invalid log format: %s (must be json or text)", c.Observability.LogFormat)
	}
	if o := c.Observability; o.OTelEnabled {
		if o.OTelEndpoint == "" {
			fail("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if o.OTelServiceName == "" {
			fail("OpenTelemetry service name is required when OTel is enabled")
		}
		if o.OTelSampleRatio < 0 || o.OTelSampleRatio > 1 {
			fail("OpenTelemetry sample ratio must be between 0 and 1, got %v", o.OTelSampleRatio)
		}
	}

	if s := c.Integrity.AuditSchedule; s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			fail("invalid audit schedule %q: %w", s, err)
		}
	}
	if c.Integrity.SeedWatch && c.Integrity.SeedFile == "" {
		fail("seed watch requires a seed file")
	}

	return errors.Join(errs...)
}
