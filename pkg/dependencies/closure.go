package dependencies

import "fmt"

// noSkip disables the first-hop skip in reach.
const noSkip = -1

// AllDependencies returns every version reachable from id through includes
// edges, in discovery order. id itself is never part of the result, even when
// a cycle leads back to it.
func (g *Graph) AllDependencies(id int64) ([]int64, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return g.ids(g.reach(i, g.out, noSkip), false), nil
}

// AllDependents returns every version that reaches id through includes edges
func (g *Graph) AllDependents(id int64) ([]int64, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return g.ids(g.reach(i, g.in, noSkip), false), nil
}

// reach walks adj from start with an explicit stack and returns the visited
// indexes in discovery order, excluding start. When skip is not noSkip the
// direct edge start -> skip is ignored; skip is still returned if another path
// leads to it.
func (g *Graph) reach(start int, adj [][]int, skip int) []int {
	visited := make([]bool, len(g.nodes))
	visited[start] = true

	stack := make([]int, 0, len(adj[start]))
	for k := len(adj[start]) - 1; k >= 0; k-- {
		if t := adj[start][k]; t != skip {
			stack = append(stack, t)
		}
	}

	var order []int
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		order = append(order, cur)

		for k := len(adj[cur]) - 1; k >= 0; k-- {
			if t := adj[cur][k]; !visited[t] {
				stack = append(stack, t)
			}
		}
	}
	return order
}

// TopologicalOrder returns the dependencies of id ordered so that every
// version comes after everything it includes. id itself is not included.
func (g *Graph) TopologicalOrder(id int64) ([]int64, error) {
	root, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	color := make([]uint8, len(g.nodes))
	stack := []frame{{node: root}}
	color[root] = gray

	var order []int
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(g.out[top.node]) {
			t := g.out[top.node][top.next]
			top.next++
			switch color[t] {
			case gray:
				return nil, g.cycleError(cyclePath(stack, t))
			case white:
				color[t] = gray
				stack = append(stack, frame{node: t})
			}
			continue
		}
		color[top.node] = black
		if top.node != root {
			order = append(order, top.node)
		}
		stack = stack[:len(stack)-1]
	}
	return g.ids(order, false), nil
}

// ImpactAnalysis describes which versions are affected by a change to one version
type ImpactAnalysis struct {
	Version              Node   `json:"version"`
	DirectDependents     []Node `json:"direct_dependents"`
	TransitiveDependents []Node `json:"transitive_dependents"`
	TotalImpact          int    `json:"total_impact"`
}

// Impact returns the direct and transitive dependents of id
func (g *Graph) Impact(id int64) (*ImpactAnalysis, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	direct := make([]Node, 0, len(g.in[i]))
	isDirect := make(map[int]bool, len(g.in[i]))
	for _, from := range g.in[i] {
		direct = append(direct, g.nodes[from])
		isDirect[from] = true
	}

	transitive := make([]Node, 0)
	for _, j := range g.reach(i, g.in, noSkip) {
		if !isDirect[j] {
			transitive = append(transitive, g.nodes[j])
		}
	}

	return &ImpactAnalysis{
		Version:              g.nodes[i],
		DirectDependents:     direct,
		TransitiveDependents: transitive,
		TotalImpact:          len(direct) + len(transitive),
	}, nil
}
