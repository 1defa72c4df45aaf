package seed

import (
	"errors"

	"github.com/platinummonkey/unitgraph/pkg/dependencies"
)

// Rejection is an include the engine refused
type Rejection struct {
	Include IncludeSpec
	Err     error
}

// Build assembles the seed's graph offline, applying includes in file order.
// Every rejected include is returned; the graph holds the accepted ones.
// Version ids are assigned from 1 in declaration order.
func Build(f *File) (*dependencies.Graph, []Rejection, error) {
	g := dependencies.NewGraph()
	ids := make(map[Ref]int64)

	var next int64
	for ui, u := range f.Units {
		for _, v := range u.Versions {
			next++
			ref := Ref{Unit: u.Name, Version: v}
			ids[ref] = next
			err := g.AddNode(dependencies.Node{
				ID:       next,
				UnitID:   int64(ui + 1),
				UnitName: u.Name,
				Version:  v,
			})
			if err != nil {
				return nil, nil, err
			}
		}
	}

	var rejected []Rejection
	for _, inc := range f.Includes {
		err := g.Apply(dependencies.Mutation{
			Add: []dependencies.Edge{{From: ids[inc.From], To: ids[inc.To]}},
		})
		var verr *dependencies.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &verr):
			rejected = append(rejected, Rejection{Include: inc, Err: verr})
		default:
			return nil, nil, err
		}
	}
	return g, rejected, nil
}
