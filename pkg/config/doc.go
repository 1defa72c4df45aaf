// Package config loads and validates configuration from environment variables.
//
// # Overview
//
// Every setting has a default; LoadConfig reads the UNITGRAPH_ variables and
// validates the result. A value that does not parse, such as
// UNITGRAPH_READ_TIMEOUT="soon", is an error rather than a silent fallback,
// and Validate reports every problem at once.
//
// # Configuration Structure
//
// Server settings:
//
//	UNITGRAPH_HOST="0.0.0.0"
//	UNITGRAPH_PORT="8080"
//	UNITGRAPH_HEALTH_PORT="9090"
//	UNITGRAPH_READ_TIMEOUT="15s"
//	UNITGRAPH_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	UNITGRAPH_STORAGE_TYPE="postgres"  # memory, postgres, sqlite
//	UNITGRAPH_POSTGRES_URL="postgres://localhost/unitgraph"
//	UNITGRAPH_POSTGRES_MAX_CONNS="20"
//	UNITGRAPH_SQLITE_PATH="/var/lib/unitgraph/unitgraph.db"
//
// Cache settings:
//
//	UNITGRAPH_CACHE_ENABLED="true"
//	UNITGRAPH_REDIS_URL="redis://localhost:6379"  # in-process LRU when unset
//	UNITGRAPH_L1_CACHE_ENTRIES="1024"
//	UNITGRAPH_CLOSURE_CACHE_TTL="10m"
//
// Observability settings:
//
//	UNITGRAPH_LOG_LEVEL="info"  # debug, info, warn, error
//	UNITGRAPH_LOG_FORMAT="json" # json, text
//	UNITGRAPH_METRICS_ENABLED="true"
//	UNITGRAPH_OTEL_ENABLED="true"
//	UNITGRAPH_OTEL_ENDPOINT="otel-collector:4317"
//	UNITGRAPH_OTEL_SAMPLE_RATIO="0.1"
//
// Integrity settings:
//
//	UNITGRAPH_AUDIT_SCHEDULE="@every 1h"  # cron expression, empty disables
//	UNITGRAPH_SEED_FILE="seed.yaml"
//	UNITGRAPH_SEED_WATCH="true"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Storage: %s\n", cfg.Storage.Type)
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/observability: Uses observability configuration
package config
