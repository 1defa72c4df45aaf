package dependencies

// Mutation is a change to the includes-edge set, validated and applied as a whole
type Mutation struct {
	Add    []Edge `json:"add,omitempty"`
	Remove []Edge `json:"remove,omitempty"`
}

// IsEmpty reports whether the mutation changes nothing
func (m Mutation) IsEmpty() bool {
	return len(m.Add) == 0 && len(m.Remove) == 0
}

// Validate checks a mutation against the graph without changing it.
// It returns a *ValidationError for conflicts and cycles, or an
// ErrNodeNotFound error for unknown ids.
func (g *Graph) Validate(m Mutation) error {
	_, err := g.plan(m)
	return err
}

// Apply validates a mutation and commits it. A rejected mutation leaves the
// graph untouched.
func (g *Graph) Apply(m Mutation) error {
	next, err := g.plan(m)
	if err != nil {
		return err
	}
	*g = *next
	return nil
}

// plan applies the mutation to a clone and runs, in order:
//  1. removals;
//  2. a conflict check for every added edge against the closure of its source
//     before that edge is linked (self-edges are left to the cycle check);
//  3. cycle detection over the whole graph;
//  4. a compatibility check of the whole closure of every mutated source and
//     of each of its ancestors, since their closures changed too.
func (g *Graph) plan(m Mutation) (*Graph, error) {
	work := g.Clone()

	var sources []int
	seen := make(map[int]bool)
	touch := func(i int) {
		if !seen[i] {
			seen[i] = true
			sources = append(sources, i)
		}
	}

	for _, e := range m.Remove {
		from, to, err := work.endpoints(e)
		if err != nil {
			return nil, err
		}
		work.unlink(from, to)
	}

	for _, e := range m.Add {
		from, to, err := work.endpoints(e)
		if err != nil {
			return nil, err
		}
		touch(from)
		if from != to {
			if c := work.conflictWith(to, work.reach(from, work.out, noSkip)); c != nil {
				return nil, c.ValidationError()
			}
		}
		work.link(from, to)
	}

	if path := work.findCycle(work.alive()); path != nil {
		return nil, work.cycleError(path)
	}

	if c := work.recheck(g, sources); c != nil {
		return nil, c.ValidationError()
	}
	return work, nil
}

// recheck verifies the closures of the given sources and of everything that
// reaches them. prev is the graph before the mutation; only pairs the mutation
// brought together are rejected.
func (g *Graph) recheck(prev *Graph, sources []int) *Conflict {
	affected := make([]int, 0, len(sources))
	seen := make(map[int]bool)
	for _, s := range sources {
		for _, a := range append([]int{s}, g.reach(s, g.in, noSkip)...) {
			if !seen[a] {
				seen[a] = true
				affected = append(affected, a)
			}
		}
	}

	for _, a := range affected {
		prior := make(map[int]bool)
		for _, i := range prev.reach(a, prev.out, noSkip) {
			prior[i] = true
		}
		if conflicts := g.closureConflicts(a, prior); len(conflicts) > 0 {
			return conflicts[0]
		}
	}
	return nil
}

// Audit re-validates the whole graph without a mutation: the first cycle, if
// any, followed by every pair of incompatible versions of one unit that share
// a closure, each pair reported once.
// A graph built only through Apply always audits clean.
func (g *Graph) Audit() []*ValidationError {
	var violations []*ValidationError

	if path := g.findCycle(g.alive()); path != nil {
		violations = append(violations, g.cycleError(path))
	}

	reported := make(map[[2]int64]bool)
	for _, a := range g.alive() {
		for _, c := range g.closureConflicts(a, nil) {
			pair := [2]int64{c.Existing.ID, c.Candidate.ID}
			if pair[0] > pair[1] {
				pair[0], pair[1] = pair[1], pair[0]
			}
			if reported[pair] {
				continue
			}
			reported[pair] = true
			violations = append(violations, c.ValidationError())
		}
	}
	return violations
}
