package storage

import (
	"context"
	"time"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
)

// UnitReader reads units
type UnitReader interface {
	GetUnit(ctx context.Context, id int64) (*catalog.Unit, error)
	ListUnits(ctx context.Context) ([]*catalog.Unit, error)
}

// UnitWriter writes units. Deleting a unit deletes its versions and every
// includes edge touching them.
type UnitWriter interface {
	CreateUnit(ctx context.Context, unit *catalog.Unit) error
	UpdateUnit(ctx context.Context, unit *catalog.Unit) error
	DeleteUnit(ctx context.Context, id int64) error
}

// TagStore manages unit tags
type TagStore interface {
	CreateTag(ctx context.Context, tag *catalog.Tag) error
	ListTags(ctx context.Context) ([]*catalog.Tag, error)
}

// VersionReader reads versions
type VersionReader interface {
	GetVersion(ctx context.Context, id int64) (*catalog.Version, error)
	// ListVersions returns the versions of a unit, newest first
	ListVersions(ctx context.Context, unitID int64) ([]*catalog.Version, error)
}

// VersionWriter writes versions. A version's unit never changes after
// creation; deleting a version deletes every includes edge touching it.
type VersionWriter interface {
	CreateVersion(ctx context.Context, version *catalog.Version) error
	SetVersionState(ctx context.Context, id int64, state catalog.State, published *time.Time) error
	DeleteVersion(ctx context.Context, id int64) error
}

// IncludesFunc receives the current graph inside a unit of work and returns
// the edge mutation to commit. Returning an error aborts the unit of work.
type IncludesFunc func(snapshot dependencies.Snapshot) (dependencies.Mutation, error)

// GraphStore persists the includes graph
type GraphStore interface {
	// LoadGraph returns every version and includes edge
	LoadGraph(ctx context.Context) (dependencies.Snapshot, error)
	// UpdateIncludes runs fn and commits its mutation as one unit of work.
	// Concurrent calls are serialized so fn always sees the committed graph.
	UpdateIncludes(ctx context.Context, fn IncludesFunc) error
}

// HealthChecker reports backend health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Store is the full persistence contract of the registry
type Store interface {
	UnitReader
	UnitWriter
	TagStore
	VersionReader
	VersionWriter
	GraphStore
	HealthChecker
	Close() error
}

// Config for storage backend
type Config struct {
	Type string // "memory", "postgres", "sqlite"

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// SQLite config
	SQLitePath string

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// Cache config
	CacheEnabled bool
	CacheTTL     map[string]time.Duration
	L1CacheSize  int // Entries
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             "memory",
		SQLitePath:       "unitgraph.db",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		CacheEnabled:     true,
		CacheTTL: map[string]time.Duration{
			"dependency_tree": 1 * time.Hour,
			"dependents":      10 * time.Minute,
		},
		L1CacheSize: 1024,
	}
}
