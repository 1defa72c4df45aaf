package dependencies

import (
	"fmt"
	"sort"

	"github.com/platinummonkey/unitgraph/pkg/versioning"
)

// Conflict is a pair of incompatible versions of the same unit
type Conflict struct {
	Existing  Node `json:"existing"`
	Candidate Node `json:"candidate"`
}

// ValidationError returns the conflict as a rejection
func (c *Conflict) ValidationError() *ValidationError {
	return conflictError(c.Existing, c.Candidate)
}

// CheckConflict reports whether adding the edge id -> candidate would put an
// incompatible version of the candidate's unit into the dependency closure of
// id. It must run before the edge exists, so the closure reflects the graph
// without it.
//
// When several existing versions conflict, which one is reported depends on
// traversal order and is not guaranteed.
func (g *Graph) CheckConflict(id, candidate int64) (*Conflict, error) {
	from, to, err := g.endpoints(Edge{From: id, To: candidate})
	if err != nil {
		return nil, err
	}
	return g.conflictWith(to, g.reach(from, g.out, noSkip)), nil
}

// conflictWith compares the candidate with every reached version of the same
// unit and returns the first incompatible one.
func (g *Graph) conflictWith(candidate int, reached []int) *Conflict {
	cand := g.nodes[candidate]
	for _, i := range reached {
		if i == candidate {
			continue
		}
		existing := g.nodes[i]
		if existing.UnitID != cand.UnitID {
			continue
		}
		if !versioning.Compatible(existing.Version, cand.Version) {
			return &Conflict{Existing: existing, Candidate: cand}
		}
	}
	return nil
}

// closureConflicts lists every pair of incompatible versions of one unit in
// the closure of a, grouped by unit in discovery order. Versions in prior,
// the closure of a before a mutation, are reported as the existing side, and
// pairs that were both already in prior are left out. A nil prior reports
// every pair.
func (g *Graph) closureConflicts(a int, prior map[int]bool) []*Conflict {
	byUnit := make(map[int64][]int)
	var units []int64
	for _, i := range g.reach(a, g.out, noSkip) {
		u := g.nodes[i].UnitID
		if _, ok := byUnit[u]; !ok {
			units = append(units, u)
		}
		byUnit[u] = append(byUnit[u], i)
	}

	var conflicts []*Conflict
	for _, u := range units {
		group := byUnit[u]
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(x, y int) bool {
			return prior[group[x]] && !prior[group[y]]
		})
		for x := 0; x < len(group); x++ {
			for y := x + 1; y < len(group); y++ {
				if prior[group[x]] && prior[group[y]] {
					continue
				}
				existing, cand := g.nodes[group[x]], g.nodes[group[y]]
				if !versioning.Compatible(existing.Version, cand.Version) {
					conflicts = append(conflicts, &Conflict{Existing: existing, Candidate: cand})
				}
			}
		}
	}
	return conflicts
}

func (c *Conflict) String() string {
	return fmt.Sprintf("%s conflicts with %s", c.Candidate.Ref(), c.Existing.Ref())
}
