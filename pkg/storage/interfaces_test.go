package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig tests the DefaultConfig function
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "unitgraph.db", cfg.SQLitePath)
	assert.Equal(t, 20, cfg.PostgresMaxConns)
	assert.Equal(t, 2, cfg.PostgresMinConns)
	assert.Equal(t, 10*time.Second, cfg.PostgresTimeout)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 3, cfg.RedisMaxRetries)
	assert.Equal(t, 10, cfg.RedisPoolSize)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 1024, cfg.L1CacheSize)

	require.NotNil(t, cfg.CacheTTL)
	assert.Equal(t, 1*time.Hour, cfg.CacheTTL["dependency_tree"])
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL["dependents"])
}

// TestConfig_ZeroValues tests that Config can be initialized with zero values
func TestConfig_ZeroValues(t *testing.T) {
	var cfg Config

	assert.Equal(t, "", cfg.Type)
	assert.Equal(t, 0, cfg.PostgresMaxConns)
	assert.Equal(t, time.Duration(0), cfg.PostgresTimeout)
	assert.False(t, cfg.CacheEnabled)
	assert.Nil(t, cfg.CacheTTL)
}

func TestMemoryStore_ImplementsStore(t *testing.T) {
	var s Store = NewMemoryStore()
	assert.NotNil(t, s)
}
