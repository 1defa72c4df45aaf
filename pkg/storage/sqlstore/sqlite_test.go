package sqlstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/unitgraph/pkg/storage"
	"github.com/platinummonkey/unitgraph/pkg/storage/storetest"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "unitgraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		return newSQLiteStore(t)
	})
}

func TestSQLiteStore_MigrateIsRepeatable(t *testing.T) {
	s := newSQLiteStore(t)
	require.NoError(t, s.Migrate(t.Context()))
	require.NoError(t, s.HealthCheck(t.Context()))
}
