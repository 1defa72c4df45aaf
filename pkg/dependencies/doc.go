// Package dependencies is the version-dependency graph engine.
//
// # Overview
//
// Versions are nodes; a directed "includes" edge means one version depends on
// another. The engine keeps the graph acyclic and makes sure that no
// dependency closure contains two incompatible versions of the same unit.
// It performs no I/O: a store materializes a Snapshot, the engine validates a
// Mutation against it, and the store commits or rolls back.
//
// # Key Features
//
// Transitive Closure: all versions reachable from a version, excluding itself
// Conflict Detection: incompatible versions of one unit in a closure
// Cycle Detection: three-colour DFS with an explicit stack, self-edges included
// Impact Analysis: transitive dependents through the included-in index
// Topological Order: dependencies-first order of a closure
//
// # Usage Example
//
// Validate and apply an edge:
//
//	g, err := dependencies.FromSnapshot(snapshot)
//	if err != nil {
//		return err
//	}
//	err = g.Apply(dependencies.Mutation{
//		Add: []dependencies.Edge{{From: trade.ID, To: bsp.ID}},
//	})
//	var verr *dependencies.ValidationError
//	if errors.As(err, &verr) {
//		fmt.Println(verr.Kind, verr.Error())
//	}
//
// Collect the closure:
//
//	deps, _ := g.AllDependencies(trade.ID)
//
// Re-validate a stored graph:
//
//	for _, v := range g.Audit() {
//		fmt.Println(v)
//	}
//
// # Related Packages
//
//   - pkg/versioning: version parsing and compatibility
//   - pkg/registry: runs mutations inside a store unit of work
package dependencies
