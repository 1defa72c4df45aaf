package dependencies

// DFS colours
const (
	white uint8 = iota // not visited
	gray               // on the current path
	black              // fully explored
)

// frame is one level of the explicit DFS stack: a node and the position of
// the next outgoing edge to explore.
type frame struct {
	node int
	next int
}

// HasCycle reports whether a cycle is reachable from any of the given
// versions, or anywhere in the graph when no ids are given. Unknown ids are
// ignored.
func (g *Graph) HasCycle(ids ...int64) bool {
	return g.FindCycle(ids...) != nil
}

// FindCycle returns the first cycle found as a path of version ids that starts
// and ends at the same version, or nil.
func (g *Graph) FindCycle(ids ...int64) []int64 {
	starts := g.alive()
	if len(ids) > 0 {
		starts = starts[:0]
		for _, id := range ids {
			if i, ok := g.index[id]; ok {
				starts = append(starts, i)
			}
		}
	}
	path := g.findCycle(starts)
	if path == nil {
		return nil
	}
	return g.ids(path, false)
}

// findCycle is a three-colour DFS. Reaching a gray node is a back-edge; a
// self-edge is the one-node case of that.
func (g *Graph) findCycle(starts []int) []int {
	color := make([]uint8, len(g.nodes))

	for _, s := range starts {
		if color[s] != white {
			continue
		}
		stack := []frame{{node: s}}
		color[s] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(g.out[top.node]) {
				t := g.out[top.node][top.next]
				top.next++
				switch color[t] {
				case gray:
					return cyclePath(stack, t)
				case white:
					color[t] = gray
					stack = append(stack, frame{node: t})
				}
				continue
			}
			color[top.node] = black
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

// cyclePath extracts target ... top-of-stack, target from the DFS stack.
func cyclePath(stack []frame, target int) []int {
	start := 0
	for k, f := range stack {
		if f.node == target {
			start = k
			break
		}
	}
	path := make([]int, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.node)
	}
	return append(path, target)
}
