package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
)

// AddInclude makes parent include child. The edge is rejected with a
// *dependencies.ValidationError when it would create a cycle or put two
// incompatible versions of one unit into a dependency closure.
func (r *Registry) AddInclude(ctx context.Context, parent, child int64) error {
	return r.mutate(ctx, "AddInclude", parent, func(g *dependencies.Graph) (dependencies.Mutation, error) {
		if err := requireNodes(g, parent, child); err != nil {
			return dependencies.Mutation{}, err
		}
		if g.HasEdge(parent, child) {
			return dependencies.Mutation{}, nil
		}
		return dependencies.Mutation{Add: []dependencies.Edge{{From: parent, To: child}}}, nil
	})
}

// RemoveInclude drops the edge parent -> child
func (r *Registry) RemoveInclude(ctx context.Context, parent, child int64) error {
	return r.mutate(ctx, "RemoveInclude", parent, func(g *dependencies.Graph) (dependencies.Mutation, error) {
		if err := requireNodes(g, parent, child); err != nil {
			return dependencies.Mutation{}, err
		}
		if !g.HasEdge(parent, child) {
			return dependencies.Mutation{}, fmt.Errorf("include %d -> %d: %w", parent, child, catalog.ErrNotFound)
		}
		return dependencies.Mutation{Remove: []dependencies.Edge{{From: parent, To: child}}}, nil
	})
}

// ReplaceIncludes sets the includes of parent to exactly children, validated
// as one mutation.
func (r *Registry) ReplaceIncludes(ctx context.Context, parent int64, children []int64) error {
	return r.mutate(ctx, "ReplaceIncludes", parent, func(g *dependencies.Graph) (dependencies.Mutation, error) {
		if err := requireNodes(g, append([]int64{parent}, children...)...); err != nil {
			return dependencies.Mutation{}, err
		}
		return diffIncludes(g, parent, children), nil
	})
}

// CheckInclude validates parent -> child against the committed graph without
// storing anything.
func (r *Registry) CheckInclude(ctx context.Context, parent, child int64) error {
	ctx, span := registryTracer.Start(ctx, "CheckInclude", trace.WithAttributes(
		attribute.Int64("parent_id", parent),
		attribute.Int64("child_id", child),
	))
	defer span.End()

	g, err := r.graph(ctx)
	if err != nil {
		return fail(span, err, "failed to load graph")
	}
	if err := requireNodes(g, parent, child); err != nil {
		return fail(span, err, "unknown version")
	}

	start := time.Now()
	err = g.Validate(dependencies.Mutation{Add: []dependencies.Edge{{From: parent, To: child}}})
	r.observeValidation(ctx, err, time.Since(start))
	if err != nil {
		return fail(span, err, "include rejected")
	}
	return nil
}

// Includes returns the versions parent includes directly
func (r *Registry) Includes(ctx context.Context, id int64) ([]*catalog.Version, error) {
	return r.neighbours(ctx, id, (*dependencies.Graph).Includes)
}

// IncludedIn returns the versions that include id directly
func (r *Registry) IncludedIn(ctx context.Context, id int64) ([]*catalog.Version, error) {
	return r.neighbours(ctx, id, (*dependencies.Graph).IncludedIn)
}

func (r *Registry) neighbours(ctx context.Context, id int64, list func(*dependencies.Graph, int64) ([]int64, error)) ([]*catalog.Version, error) {
	g, err := r.graph(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireNodes(g, id); err != nil {
		return nil, err
	}
	ids, err := list(g, id)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, ids)
}

// mutate runs build inside the store's unit of work: the committed graph is
// loaded, build derives the mutation, the engine validates it, and the store
// commits it only when it is accepted.
func (r *Registry) mutate(ctx context.Context, op string, source int64, build func(*dependencies.Graph) (dependencies.Mutation, error)) error {
	ctx, span := registryTracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("version_id", source)))
	defer span.End()

	var (
		applied  dependencies.Mutation
		versions int
		includes int
	)
	start := time.Now()
	err := r.store.UpdateIncludes(ctx, func(s dependencies.Snapshot) (dependencies.Mutation, error) {
		g, err := dependencies.FromSnapshot(s)
		if err != nil {
			return dependencies.Mutation{}, fmt.Errorf("failed to build graph: %w", err)
		}
		m, err := build(g)
		if err != nil || m.IsEmpty() {
			return m, err
		}

		vstart := time.Now()
		err = g.Apply(m)
		r.observeValidation(ctx, err, time.Since(vstart))
		if err != nil {
			return dependencies.Mutation{}, err
		}
		applied, versions, includes = m, g.Len(), g.EdgeCount()
		return m, nil
	})
	if r.metrics != nil {
		r.metrics.ObserveStorage("update_includes", err, time.Since(start))
	}

	logger := r.log(ctx).WithFields(logrus.Fields{"operation": op, "version_id": source})
	if err != nil {
		logger.WithError(err).Info("Includes mutation rejected")
		return fail(span, err, "includes mutation rejected")
	}
	if applied.IsEmpty() {
		return nil
	}

	if r.metrics != nil {
		r.metrics.SetGraphSize(versions, includes)
	}
	r.invalidate(ctx)
	logger.WithFields(logrus.Fields{
		"added":   len(applied.Add),
		"removed": len(applied.Remove),
	}).Info("Includes updated")
	return nil
}

// graph loads the committed graph
func (r *Registry) graph(ctx context.Context) (*dependencies.Graph, error) {
	start := time.Now()
	s, err := r.store.LoadGraph(ctx)
	if r.metrics != nil {
		r.metrics.ObserveStorage("load_graph", err, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return dependencies.FromSnapshot(s)
}

// requireNodes reports the first id that is not a version
func requireNodes(g *dependencies.Graph, ids ...int64) error {
	for _, id := range ids {
		if _, ok := g.Node(id); !ok {
			return catalog.NotFound("version", id)
		}
	}
	return nil
}

// diffIncludes is the mutation that turns the includes of parent into children
func diffIncludes(g *dependencies.Graph, parent int64, children []int64) dependencies.Mutation {
	want := make(map[int64]bool, len(children))
	for _, c := range children {
		want[c] = true
	}
	current, _ := g.Includes(parent)
	have := make(map[int64]bool, len(current))

	var m dependencies.Mutation
	for _, c := range current {
		have[c] = true
		if !want[c] {
			m.Remove = append(m.Remove, dependencies.Edge{From: parent, To: c})
		}
	}

	added := make([]int64, 0, len(want))
	for c := range want {
		if !have[c] {
			added = append(added, c)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	for _, c := range added {
		m.Add = append(m.Add, dependencies.Edge{From: parent, To: c})
	}
	return m
}
