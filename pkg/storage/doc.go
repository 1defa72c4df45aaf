// Package storage defines the persistence contract of the unit registry and an
// in-memory backend.
//
// # Architecture
//
// The contract is composed from focused interfaces:
//
//   - UnitReader / UnitWriter: units, with cascading deletes
//   - TagStore: tags referenced by units
//   - VersionReader / VersionWriter: versions and their lifecycle state
//   - GraphStore: the includes graph, loaded as a dependencies.Snapshot and
//     mutated only through UpdateIncludes
//   - HealthChecker: backend health monitoring
//
// # Units of work
//
// UpdateIncludes is the one place includes edges change. The backend hands the
// committed graph to a callback, the callback validates and returns a
// dependencies.Mutation, and the backend commits that mutation or nothing:
//
//	err := store.UpdateIncludes(ctx, func(s dependencies.Snapshot) (dependencies.Mutation, error) {
//		g, err := dependencies.FromSnapshot(s)
//		if err != nil {
//			return dependencies.Mutation{}, err
//		}
//		m := dependencies.Mutation{Add: []dependencies.Edge{{From: 1, To: 2}}}
//		return m, g.Validate(m)
//	})
//
// MemoryStore serializes units of work with a mutex. The SQL backends in
// storage/sqlstore use a transaction and, on PostgreSQL, a table lock.
//
// # Configuration
//
//	config := storage.DefaultConfig()
//	config.Type = "postgres"
//	config.PostgresURL = "postgres://localhost/unitgraph"
//
// All methods accept context.Context as the first parameter.
package storage
