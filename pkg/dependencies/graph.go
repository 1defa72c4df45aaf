package dependencies

import (
	"fmt"
	"sort"
)

// Node is a version in the includes graph
type Node struct {
	ID       int64  `json:"id"`
	UnitID   int64  `json:"unit_id"`
	UnitName string `json:"unit_name"`
	Version  string `json:"version"`
}

// Ref returns the (unit, version) pair used in validation errors
func (n Node) Ref() VersionRef {
	return VersionRef{ID: n.ID, Unit: n.UnitName, Version: n.Version}
}

// Edge is a directed "includes" edge: From includes To
type Edge struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Snapshot is the plain data a store hands over to build a graph
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Graph is an arena of version nodes with forward (includes) and reverse
// (included-in) adjacency kept in step by link and unlink.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	nodes   []Node
	removed []bool
	index   map[int64]int
	out     [][]int
	in      [][]int
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		index: make(map[int64]int),
	}
}

// FromSnapshot builds a graph from a snapshot without validating it.
// Duplicate edges are collapsed; edges to unknown nodes are an error.
func FromSnapshot(s Snapshot) (*Graph, error) {
	g := NewGraph()
	for _, n := range s.Nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range s.Edges {
		from, to, err := g.endpoints(e)
		if err != nil {
			return nil, err
		}
		g.link(from, to)
	}
	return g, nil
}

// AddNode adds a version without edges
func (g *Graph) AddNode(n Node) error {
	if _, ok := g.index[n.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, n.ID)
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.removed = append(g.removed, false)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return nil
}

// RemoveNode drops a version together with every edge touching it
func (g *Graph) RemoveNode(id int64) error {
	i, ok := g.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	for _, to := range append([]int(nil), g.out[i]...) {
		g.unlink(i, to)
	}
	for _, from := range append([]int(nil), g.in[i]...) {
		g.unlink(from, i)
	}
	delete(g.index, id)
	g.removed[i] = true
	return nil
}

// Node returns the node with the given id
func (g *Graph) Node(id int64) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.index)
}

// EdgeCount returns the number of includes edges
func (g *Graph) EdgeCount() int {
	count := 0
	for i := range g.out {
		count += len(g.out[i])
	}
	return count
}

// Nodes returns all nodes in insertion order
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.index))
	for _, i := range g.alive() {
		nodes = append(nodes, g.nodes[i])
	}
	return nodes
}

// Edges returns all edges, grouped by source in insertion order
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.EdgeCount())
	for _, i := range g.alive() {
		for _, to := range g.out[i] {
			edges = append(edges, Edge{From: g.nodes[i].ID, To: g.nodes[to].ID})
		}
	}
	return edges
}

// Snapshot returns the graph as plain data
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{Nodes: g.Nodes(), Edges: g.Edges()}
}

// HasEdge reports whether from includes to
func (g *Graph) HasEdge(from, to int64) bool {
	f, ok := g.index[from]
	if !ok {
		return false
	}
	t, ok := g.index[to]
	if !ok {
		return false
	}
	return indexOf(g.out[f], t) >= 0
}

// Includes returns the direct includes of a version, sorted by id
func (g *Graph) Includes(id int64) ([]int64, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return g.ids(g.out[i], true), nil
}

// IncludedIn returns the versions that directly include id, sorted by id
func (g *Graph) IncludedIn(id int64) ([]int64, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return g.ids(g.in[i], true), nil
}

// Clone returns a deep copy
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:   append([]Node(nil), g.nodes...),
		removed: append([]bool(nil), g.removed...),
		index:   make(map[int64]int, len(g.index)),
		out:     make([][]int, len(g.out)),
		in:      make([][]int, len(g.in)),
	}
	for id, i := range g.index {
		c.index[id] = i
	}
	for i := range g.out {
		c.out[i] = append([]int(nil), g.out[i]...)
		c.in[i] = append([]int(nil), g.in[i]...)
	}
	return c
}

// link is the only place edges are added; it keeps both indexes in step.
func (g *Graph) link(from, to int) bool {
	if indexOf(g.out[from], to) >= 0 {
		return false
	}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	return true
}

// unlink is the only place edges are removed.
func (g *Graph) unlink(from, to int) bool {
	pos := indexOf(g.out[from], to)
	if pos < 0 {
		return false
	}
	g.out[from] = removeAt(g.out[from], pos)
	g.in[to] = removeAt(g.in[to], indexOf(g.in[to], from))
	return true
}

func (g *Graph) endpoints(e Edge) (int, int, error) {
	from, ok := g.index[e.From]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrNodeNotFound, e.From)
	}
	to, ok := g.index[e.To]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrNodeNotFound, e.To)
	}
	return from, to, nil
}

func (g *Graph) alive() []int {
	idx := make([]int, 0, len(g.index))
	for i := range g.nodes {
		if !g.removed[i] {
			idx = append(idx, i)
		}
	}
	return idx
}

func (g *Graph) ids(idx []int, sorted bool) []int64 {
	ids := make([]int64, len(idx))
	for k, i := range idx {
		ids[k] = g.nodes[i].ID
	}
	if sorted {
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	}
	return ids
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func removeAt(s []int, i int) []int {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}
