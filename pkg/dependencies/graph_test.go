package dependencies

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

// fixture builds graphs with readable names; ids are assigned in order.
type fixture struct {
	t     *testing.T
	g     *Graph
	ids   map[string]int64
	units map[string]int64
	next  int64
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		t:     t,
		g:     NewGraph(),
		ids:   make(map[string]int64),
		units: make(map[string]int64),
	}
}

// version adds a node named name for unit at version.
func (f *fixture) version(name, unit, version string) int64 {
	f.t.Helper()
	unitID, ok := f.units[unit]
	if !ok {
		unitID = int64(len(f.units) + 100)
		f.units[unit] = unitID
	}
	f.next++
	if err := f.g.AddNode(Node{ID: f.next, UnitID: unitID, UnitName: unit, Version: version}); err != nil {
		f.t.Fatalf("AddNode(%s): %v", name, err)
	}
	f.ids[name] = f.next
	return f.next
}

func (f *fixture) edge(from, to string) Edge {
	return Edge{From: f.ids[from], To: f.ids[to]}
}

func (f *fixture) include(from, to string) error {
	return f.g.Apply(Mutation{Add: []Edge{f.edge(from, to)}})
}

func (f *fixture) mustInclude(from, to string) {
	f.t.Helper()
	if err := f.include(from, to); err != nil {
		f.t.Fatalf("include %s -> %s: %v", from, to, err)
	}
}

func (f *fixture) names(ids []int64) []string {
	byID := make(map[int64]string, len(f.ids))
	for name, id := range f.ids {
		byID[id] = name
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, byID[id])
	}
	sort.Strings(names)
	return names
}

func kindOf(err error) Kind {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return ""
}

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph()
	if err := g.AddNode(Node{ID: 1, UnitID: 10, UnitName: "Trade", Version: "11.5.4.112"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode(Node{ID: 1}); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("Expected ErrDuplicateNode, got %v", err)
	}

	node, ok := g.Node(1)
	if !ok {
		t.Fatal("Expected node to be added")
	}
	if node.UnitName != "Trade" {
		t.Errorf("Expected unit 'Trade', got %s", node.UnitName)
	}
	if g.Len() != 1 {
		t.Errorf("Expected 1 node, got %d", g.Len())
	}
}

func TestGraph_ForwardAndReverseIndexStayInStep(t *testing.T) {
	f := newFixture(t)
	f.version("trade", "Trade", "11.5.4.112")
	f.version("bsp", "BSP", "1.1.1.1")

	f.mustInclude("trade", "bsp")

	includes, _ := f.g.Includes(f.ids["trade"])
	includedIn, _ := f.g.IncludedIn(f.ids["bsp"])
	if !reflect.DeepEqual(includes, []int64{f.ids["bsp"]}) {
		t.Errorf("Expected trade to include bsp, got %v", includes)
	}
	if !reflect.DeepEqual(includedIn, []int64{f.ids["trade"]}) {
		t.Errorf("Expected bsp to be included in trade, got %v", includedIn)
	}

	if err := f.g.Apply(Mutation{Remove: []Edge{f.edge("trade", "bsp")}}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	includes, _ = f.g.Includes(f.ids["trade"])
	includedIn, _ = f.g.IncludedIn(f.ids["bsp"])
	if len(includes) != 0 || len(includedIn) != 0 {
		t.Errorf("Expected both indexes empty, got %v and %v", includes, includedIn)
	}
}

func TestGraph_RemoveNodeDropsEdges(t *testing.T) {
	f := newFixture(t)
	f.version("a", "A", "1")
	f.version("b", "B", "1")
	f.version("c", "C", "1")
	f.mustInclude("a", "b")
	f.mustInclude("b", "c")

	if err := f.g.RemoveNode(f.ids["b"]); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if f.g.Len() != 2 || f.g.EdgeCount() != 0 {
		t.Errorf("Expected 2 nodes and 0 edges, got %d and %d", f.g.Len(), f.g.EdgeCount())
	}
	if _, err := f.g.AllDependencies(f.ids["b"]); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
	if deps, _ := f.g.AllDependencies(f.ids["a"]); len(deps) != 0 {
		t.Errorf("Expected no dependencies, got %v", deps)
	}
}

func TestFromSnapshot(t *testing.T) {
	snap := Snapshot{
		Nodes: []Node{{ID: 1, UnitID: 1}, {ID: 2, UnitID: 2}},
		Edges: []Edge{{From: 1, To: 2}, {From: 1, To: 2}},
	}
	g, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("Expected duplicate edges collapsed, got %d", g.EdgeCount())
	}
	if !reflect.DeepEqual(g.Snapshot().Edges, []Edge{{From: 1, To: 2}}) {
		t.Errorf("Unexpected snapshot edges: %v", g.Snapshot().Edges)
	}

	_, err = FromSnapshot(Snapshot{Nodes: []Node{{ID: 1}}, Edges: []Edge{{From: 1, To: 9}}})
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
}

func TestGraph_AllDependencies(t *testing.T) {
	f := newFixture(t)
	f.version("a", "A", "1")
	f.version("b", "B", "1")
	f.version("c", "C", "1")
	f.version("d", "D", "1")
	f.version("e", "E", "1")
	f.mustInclude("a", "b")
	f.mustInclude("b", "c")
	f.mustInclude("c", "d")

	deps, err := f.g.AllDependencies(f.ids["a"])
	if err != nil {
		t.Fatalf("AllDependencies: %v", err)
	}
	if got := f.names(deps); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("Expected [b c d], got %v", got)
	}

	deps, _ = f.g.AllDependencies(f.ids["e"])
	if len(deps) != 0 {
		t.Errorf("Expected no dependencies for disconnected node, got %v", deps)
	}
}

func TestGraph_AllDependencies_CyclicGraph(t *testing.T) {
	// Snapshots can carry cycles; the walker must still terminate and leave
	// the start node out.
	g, err := FromSnapshot(Snapshot{
		Nodes: []Node{{ID: 1, UnitID: 1}, {ID: 2, UnitID: 2}, {ID: 3, UnitID: 3}},
		Edges: []Edge{{From: 1, To: 2}, {From: 2, To: 3}, {From: 3, To: 1}, {From: 2, To: 2}},
	})
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	deps, _ := g.AllDependencies(1)
	sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
	if !reflect.DeepEqual(deps, []int64{2, 3}) {
		t.Errorf("Expected [2 3], got %v", deps)
	}
}

func TestGraph_AllDependents(t *testing.T) {
	f := newFixture(t)
	f.version("base", "Base", "1")
	f.version("common", "Common", "1")
	f.version("user", "User", "1")
	f.version("order", "Order", "1")
	f.mustInclude("common", "base")
	f.mustInclude("user", "common")
	f.mustInclude("order", "common")

	dependents, _ := f.g.AllDependents(f.ids["base"])
	if got := f.names(dependents); !reflect.DeepEqual(got, []string{"common", "order", "user"}) {
		t.Errorf("Expected [common order user], got %v", got)
	}
}

func TestGraph_CheckConflict(t *testing.T) {
	f := newFixture(t)
	f.version("trade", "Trade", "11.5.4.112")
	f.version("lib", "Lib", "2.0")
	f.version("bsp1", "BSP", "1.1.1.1")
	f.version("bsp2", "BSP", "1.1.1.2")
	f.version("bsp3", "BSP", "1.2.0.1")
	f.mustInclude("trade", "lib")
	f.mustInclude("lib", "bsp1")

	conflict, err := f.g.CheckConflict(f.ids["trade"], f.ids["bsp2"])
	if err != nil || conflict != nil {
		t.Errorf("Expected compatible version to pass, got %v, %v", conflict, err)
	}

	conflict, err = f.g.CheckConflict(f.ids["trade"], f.ids["bsp3"])
	if err != nil {
		t.Fatalf("CheckConflict: %v", err)
	}
	if conflict == nil {
		t.Fatal("Expected conflict")
	}
	if conflict.Existing.ID != f.ids["bsp1"] || conflict.Candidate.ID != f.ids["bsp3"] {
		t.Errorf("Unexpected conflict pair: %v", conflict)
	}

	if _, err := f.g.CheckConflict(f.ids["trade"], 999); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
}

func TestGraph_CheckConflict_FirstOfUnitNeverConflicts(t *testing.T) {
	f := newFixture(t)
	f.version("trade", "Trade", "11.5.4.112")
	f.version("wh", "Warehouse", "3.0")
	f.version("bsp", "BSP", "not-a-version")
	f.mustInclude("trade", "wh")

	conflict, err := f.g.CheckConflict(f.ids["trade"], f.ids["bsp"])
	if err != nil || conflict != nil {
		t.Errorf("Expected no conflict, got %v, %v", conflict, err)
	}
}

func TestGraph_Apply_ConflictScenarios(t *testing.T) {
	tests := []struct {
		name       string
		existing   string
		candidate  string
		expectKind Kind
	}{
		{name: "compatible build bump", existing: "1.1.1.1", candidate: "1.1.1.2"},
		{name: "minor bump", existing: "1.1.1.1", candidate: "1.2.0.1", expectKind: KindConflict},
		{name: "patch bump", existing: "1.1.1.1", candidate: "1.1.2.1", expectKind: KindConflict},
		{name: "major bump", existing: "1.0.0.1", candidate: "2.0.0.1", expectKind: KindConflict},
		{name: "unparsable candidate", existing: "1.1.1.1", candidate: "latest", expectKind: KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.version("trade", "Trade", "11.5.4.112")
			f.version("old", "BSP", tt.existing)
			f.version("new", "BSP", tt.candidate)
			f.mustInclude("trade", "old")

			err := f.include("trade", "new")
			if got := kindOf(err); got != tt.expectKind {
				t.Fatalf("Expected kind %q, got %q (%v)", tt.expectKind, got, err)
			}
			if tt.expectKind == KindConflict {
				if !errors.Is(err, ErrConflictDetected) {
					t.Errorf("Expected ErrConflictDetected, got %v", err)
				}
				var verr *ValidationError
				errors.As(err, &verr)
				if verr.Existing.Unit != "BSP" || verr.Existing.Version != tt.existing {
					t.Errorf("Unexpected existing version: %+v", verr.Existing)
				}
				if verr.Rejected.Version != tt.candidate {
					t.Errorf("Unexpected rejected version: %+v", verr.Rejected)
				}
				if f.g.HasEdge(f.ids["trade"], f.ids["new"]) {
					t.Error("Rejected edge must not be committed")
				}
			}
		})
	}
}

func TestGraph_Apply_TransitiveConflict(t *testing.T) {
	f := newFixture(t)
	f.version("trade", "Trade", "11.5.4.112")
	f.version("wh", "Warehouse", "2.0")
	f.version("bsp1", "BSP", "1.1.1.1")
	f.version("bsp2", "BSP", "1.2.0.1")
	f.version("bsp3", "BSP", "1.1.1.2")
	f.mustInclude("wh", "bsp1")
	f.mustInclude("trade", "wh")

	if err := f.include("trade", "bsp2"); !errors.Is(err, ErrConflictDetected) {
		t.Errorf("Expected conflict, got %v", err)
	}
	if err := f.include("trade", "bsp3"); err != nil {
		t.Errorf("Expected compatible version to be accepted, got %v", err)
	}
}

func TestGraph_Apply_AncestorClosureRechecked(t *testing.T) {
	f := newFixture(t)
	f.version("p", "Product", "1.0")
	f.version("n", "Module", "1.0")
	f.version("x1", "X", "1.1.1")
	f.version("x2", "X", "1.2.0")
	f.mustInclude("p", "n")
	f.mustInclude("p", "x1")

	// n has no X yet, but p would end up with both X versions.
	err := f.include("n", "x2")
	if !errors.Is(err, ErrConflictDetected) {
		t.Fatalf("Expected conflict through ancestor, got %v", err)
	}
	if f.g.HasEdge(f.ids["n"], f.ids["x2"]) {
		t.Error("Rejected edge must not be committed")
	}
}

func TestGraph_Apply_SiblingSubtreeConflict(t *testing.T) {
	f := newFixture(t)
	f.version("a", "A", "1.0")
	f.version("b", "B", "1.0")
	f.version("c", "C", "1.0")
	f.version("x1", "X", "1.1.1.1")
	f.version("x2", "X", "1.2.0.1")
	f.version("x3", "X", "1.1.1.5")
	f.mustInclude("a", "b")
	f.mustInclude("a", "c")
	f.mustInclude("b", "x1")

	// c itself has no X, but a would reach X 1.1.1.1 through b and
	// X 1.2.0.1 through c.
	err := f.include("c", "x2")
	if !errors.Is(err, ErrConflictDetected) {
		t.Fatalf("Expected conflict between sibling subtrees, got %v", err)
	}
	var verr *ValidationError
	errors.As(err, &verr)
	if verr.Existing.Version != "1.1.1.1" || verr.Rejected.Version != "1.2.0.1" {
		t.Errorf("Expected X 1.2.0.1 rejected against X 1.1.1.1, got %+v / %+v", verr.Existing, verr.Rejected)
	}
	if f.g.HasEdge(f.ids["c"], f.ids["x2"]) {
		t.Error("Rejected edge must not be committed")
	}
	if violations := f.g.Audit(); len(violations) != 0 {
		t.Errorf("Expected clean audit, got %v", violations)
	}

	f.mustInclude("a", "x3")
	deps, _ := f.g.AllDependencies(f.ids["a"])
	if got := f.names(deps); !reflect.DeepEqual(got, []string{"b", "c", "x1", "x3"}) {
		t.Errorf("Expected [b c x1 x3], got %v", got)
	}
}

func TestGraph_Apply_StoredViolationDoesNotBlockOtherIncludes(t *testing.T) {
	g, _ := FromSnapshot(Snapshot{
		Nodes: []Node{
			{ID: 1, UnitID: 1, UnitName: "P", Version: "1.0"},
			{ID: 2, UnitID: 2, UnitName: "X", Version: "1.1.1"},
			{ID: 3, UnitID: 2, UnitName: "X", Version: "1.2.0"},
			{ID: 4, UnitID: 4, UnitName: "Y", Version: "1.0"},
		},
		Edges: []Edge{{From: 1, To: 2}, {From: 1, To: 3}},
	})

	if err := g.Apply(Mutation{Add: []Edge{{From: 1, To: 4}}}); err != nil {
		t.Errorf("Expected unrelated include to be accepted, got %v", err)
	}
	if err := g.Apply(Mutation{Remove: []Edge{{From: 1, To: 3}}}); err != nil {
		t.Errorf("Expected repair to be accepted, got %v", err)
	}
	if violations := g.Audit(); len(violations) != 0 {
		t.Errorf("Expected clean audit after repair, got %v", violations)
	}
}

func TestGraph_Apply_ConflictBetweenNewEdges(t *testing.T) {
	f := newFixture(t)
	f.version("trade", "Trade", "1.0")
	f.version("a", "BSP", "1.1.1.1")
	f.version("b", "BSP", "1.2.0.1")

	err := f.g.Apply(Mutation{Add: []Edge{f.edge("trade", "a"), f.edge("trade", "b")}})
	if !errors.Is(err, ErrConflictDetected) {
		t.Fatalf("Expected conflict, got %v", err)
	}
	if f.g.EdgeCount() != 0 {
		t.Errorf("Expected no edges after rejection, got %d", f.g.EdgeCount())
	}
}

func TestGraph_Apply_NoSelfInclusion(t *testing.T) {
	f := newFixture(t)
	f.version("trade", "Trade", "11.5.4.112")
	f.version("other", "Trade", "12.0")
	f.version("lib", "Lib", "1.0")
	f.mustInclude("lib", "other")
	f.mustInclude("trade", "lib")

	// Even with an incompatible version of its own unit in the closure the
	// self-edge is reported as a cycle.
	err := f.include("trade", "trade")
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Expected ErrCycleDetected, got %v", err)
	}
	var verr *ValidationError
	errors.As(err, &verr)
	if len(verr.Cycle) != 2 || verr.Cycle[0].ID != f.ids["trade"] || verr.Cycle[1].ID != f.ids["trade"] {
		t.Errorf("Expected one-node cycle path, got %v", verr.Cycle)
	}
}

func TestGraph_Apply_CycleRejectedAndGraphUnchanged(t *testing.T) {
	f := newFixture(t)
	f.version("a", "A", "1")
	f.version("b", "B", "1")
	f.version("c", "C", "1")
	f.mustInclude("a", "b")
	f.mustInclude("b", "c")
	before := f.g.Snapshot()

	err := f.include("c", "a")
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Expected ErrCycleDetected, got %v", err)
	}
	if kindOf(err) != KindCycle {
		t.Errorf("Expected kind cycle, got %q", kindOf(err))
	}
	if !reflect.DeepEqual(before, f.g.Snapshot()) {
		t.Errorf("Graph changed after rejection: %v", f.g.Snapshot())
	}
	if in, _ := f.g.IncludedIn(f.ids["a"]); len(in) != 0 {
		t.Errorf("Reverse index changed after rejection: %v", in)
	}
}

func TestGraph_DetectCycles(t *testing.T) {
	tests := []struct {
		name        string
		edges       []Edge
		expectCycle bool
	}{
		{name: "no edges"},
		{name: "chain", edges: []Edge{{1, 2}, {2, 3}}},
		{name: "diamond", edges: []Edge{{1, 2}, {1, 3}, {2, 4}, {3, 4}}},
		{name: "direct cycle", edges: []Edge{{1, 2}, {2, 1}}, expectCycle: true},
		{name: "indirect cycle", edges: []Edge{{1, 2}, {2, 3}, {3, 1}}, expectCycle: true},
		{name: "self edge", edges: []Edge{{4, 4}}, expectCycle: true},
		{name: "cycle away from first node", edges: []Edge{{1, 2}, {3, 4}, {4, 3}}, expectCycle: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{Edges: tt.edges}
			for id := int64(1); id <= 4; id++ {
				snap.Nodes = append(snap.Nodes, Node{ID: id, UnitID: id})
			}
			g, err := FromSnapshot(snap)
			if err != nil {
				t.Fatalf("FromSnapshot: %v", err)
			}

			if got := g.HasCycle(); got != tt.expectCycle {
				t.Errorf("HasCycle() = %v, want %v", got, tt.expectCycle)
			}
			path := g.FindCycle()
			if tt.expectCycle {
				if len(path) < 2 || path[0] != path[len(path)-1] {
					t.Errorf("Expected closed cycle path, got %v", path)
				}
			} else if path != nil {
				t.Errorf("Expected no cycle path, got %v", path)
			}
		})
	}
}

func TestGraph_HasCycle_FromStartNodes(t *testing.T) {
	g, _ := FromSnapshot(Snapshot{
		Nodes: []Node{{ID: 1}, {ID: 2}, {ID: 3}},
		Edges: []Edge{{From: 2, To: 3}, {From: 3, To: 2}},
	})
	if g.HasCycle(1) {
		t.Error("Expected no cycle reachable from 1")
	}
	if !g.HasCycle(1, 2) {
		t.Error("Expected cycle reachable from 2")
	}
}

func TestGraph_TopologicalOrder(t *testing.T) {
	f := newFixture(t)
	f.version("app", "App", "1")
	f.version("ui", "UI", "1")
	f.version("core", "Core", "1")
	f.version("base", "Base", "1")
	f.mustInclude("app", "ui")
	f.mustInclude("app", "core")
	f.mustInclude("ui", "core")
	f.mustInclude("core", "base")

	order, err := f.g.TopologicalOrder(f.ids["app"])
	if err != nil {
		t.Fatalf("TopologicalOrder: %v", err)
	}
	pos := make(map[int64]int)
	for i, id := range order {
		pos[id] = i
	}
	if len(order) != 3 {
		t.Fatalf("Expected 3 dependencies, got %v", order)
	}
	if pos[f.ids["base"]] > pos[f.ids["core"]] || pos[f.ids["core"]] > pos[f.ids["ui"]] {
		t.Errorf("Dependencies out of order: %v", f.names(order))
	}

	cyclic, _ := FromSnapshot(Snapshot{
		Nodes: []Node{{ID: 1}, {ID: 2}},
		Edges: []Edge{{From: 1, To: 2}, {From: 2, To: 1}},
	})
	if _, err := cyclic.TopologicalOrder(1); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("Expected ErrCycleDetected, got %v", err)
	}
}

func TestGraph_Impact(t *testing.T) {
	f := newFixture(t)
	f.version("base", "Base", "1")
	f.version("common", "Common", "1")
	f.version("user", "User", "1")
	f.mustInclude("common", "base")
	f.mustInclude("user", "common")

	impact, err := f.g.Impact(f.ids["base"])
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	if len(impact.DirectDependents) != 1 || impact.DirectDependents[0].ID != f.ids["common"] {
		t.Errorf("Unexpected direct dependents: %v", impact.DirectDependents)
	}
	if len(impact.TransitiveDependents) != 1 || impact.TransitiveDependents[0].ID != f.ids["user"] {
		t.Errorf("Unexpected transitive dependents: %v", impact.TransitiveDependents)
	}
	if impact.TotalImpact != 2 {
		t.Errorf("Expected total impact 2, got %d", impact.TotalImpact)
	}
}

func TestGraph_ValidateIsReadOnly(t *testing.T) {
	f := newFixture(t)
	f.version("a", "A", "1")
	f.version("b", "B", "1")

	if err := f.g.Validate(Mutation{Add: []Edge{f.edge("a", "b")}}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if f.g.EdgeCount() != 0 {
		t.Error("Validate must not change the graph")
	}
	if err := f.g.Validate(Mutation{Add: []Edge{{From: 1, To: 42}}}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
}

func TestGraph_RevalidationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.version("trade", "Trade", "11.5.4.112")
	f.version("wh", "Warehouse", "2.0")
	f.version("bsp1", "BSP", "1.1.1.1")
	f.version("bsp2", "BSP", "1.1.1.2")
	f.version("bsp3", "BSP", "1.2.0.0")
	f.mustInclude("wh", "bsp1")
	f.mustInclude("trade", "wh")
	f.mustInclude("trade", "bsp2")
	_ = f.include("trade", "bsp3")
	_ = f.include("bsp1", "trade")

	if err := f.g.Apply(Mutation{}); err != nil {
		t.Errorf("Empty mutation on valid graph failed: %v", err)
	}
	if violations := f.g.Audit(); len(violations) != 0 {
		t.Errorf("Expected clean audit, got %v", violations)
	}
}

func TestGraph_Audit_ReportsStoredViolations(t *testing.T) {
	g, _ := FromSnapshot(Snapshot{
		Nodes: []Node{
			{ID: 1, UnitID: 1, UnitName: "Trade", Version: "1.0"},
			{ID: 2, UnitID: 2, UnitName: "BSP", Version: "1.1.1"},
			{ID: 3, UnitID: 2, UnitName: "BSP", Version: "1.2.0"},
			{ID: 4, UnitID: 4, UnitName: "Loop", Version: "1.0"},
		},
		Edges: []Edge{{From: 1, To: 2}, {From: 1, To: 3}, {From: 4, To: 4}},
	})

	violations := g.Audit()
	kinds := make(map[Kind]int)
	for _, v := range violations {
		kinds[v.Kind]++
	}
	if kinds[KindCycle] != 1 {
		t.Errorf("Expected 1 cycle violation, got %d", kinds[KindCycle])
	}
	if kinds[KindConflict] != 1 {
		t.Errorf("Expected the BSP pair reported once, got %d", kinds[KindConflict])
	}
}

func TestGraph_Audit_ReportsConflictAcrossSubtrees(t *testing.T) {
	g, _ := FromSnapshot(Snapshot{
		Nodes: []Node{
			{ID: 1, UnitID: 1, UnitName: "A", Version: "1.0"},
			{ID: 2, UnitID: 2, UnitName: "B", Version: "1.0"},
			{ID: 3, UnitID: 3, UnitName: "C", Version: "1.0"},
			{ID: 4, UnitID: 4, UnitName: "X", Version: "1.1.1.1"},
			{ID: 5, UnitID: 4, UnitName: "X", Version: "1.2.0.1"},
		},
		Edges: []Edge{{From: 1, To: 2}, {From: 1, To: 3}, {From: 2, To: 4}, {From: 3, To: 5}},
	})

	violations := g.Audit()
	if len(violations) != 1 {
		t.Fatalf("Expected 1 violation, got %v", violations)
	}
	if violations[0].Kind != KindConflict || violations[0].Existing.Unit != "X" {
		t.Errorf("Unexpected violation: %v", violations[0])
	}
}

func TestValidationError_Message(t *testing.T) {
	err := conflictError(
		Node{UnitName: "BSP", Version: "1.1.1.1"},
		Node{UnitName: "BSP", Version: "1.2.0.1"},
	)
	want := "version conflict detected: cannot include BSP (1.2.0.1) because version BSP (1.1.1.1) is already included"
	if got := err.Error(); len(got) < len(want) || got[:len(want)] != want {
		t.Errorf("Unexpected message: %s", got)
	}

	cycle := &ValidationError{Kind: KindCycle, Cycle: []VersionRef{{Unit: "A", Version: "1"}, {Unit: "A", Version: "1"}}}
	if cycle.Error() != "cyclic dependency detected: A (1) -> A (1)" {
		t.Errorf("Unexpected message: %s", cycle.Error())
	}
}
