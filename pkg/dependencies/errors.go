package dependencies

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNodeNotFound is returned for ids that are not in the graph
	ErrNodeNotFound = errors.New("version not found in graph")
	// ErrDuplicateNode is returned when a node id is added twice
	ErrDuplicateNode = errors.New("version already in graph")
	// ErrConflictDetected marks a rejected mutation that would put two
	// incompatible versions of one unit into a dependency closure
	ErrConflictDetected = errors.New("version conflict detected")
	// ErrCycleDetected marks a rejected mutation that would create a cycle
	ErrCycleDetected = errors.New("cyclic dependency detected")
)

// Kind is the failure kind of a rejected mutation
type Kind string

const (
	KindConflict Kind = "conflict"
	KindCycle    Kind = "cycle"
)

// VersionRef names a version by unit and version string
type VersionRef struct {
	ID      int64  `json:"id"`
	Unit    string `json:"unit"`
	Version string `json:"version"`
}

func (r VersionRef) String() string {
	return fmt.Sprintf("%s (%s)", r.Unit, r.Version)
}

// ValidationError is the structured rejection of an includes mutation.
// Existing and Rejected are set for conflicts, Cycle for cycles.
type ValidationError struct {
	Kind     Kind         `json:"kind"`
	Existing *VersionRef  `json:"existing,omitempty"`
	Rejected *VersionRef  `json:"rejected,omitempty"`
	Cycle    []VersionRef `json:"cycle,omitempty"`
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindConflict:
		return fmt.Sprintf(
			"version conflict detected: cannot include %s because version %s is already included and they are not compatible; "+
				"versions of the same configurable unit must match in the first 3 components (X.Y.Z)",
			e.Rejected, e.Existing)
	case KindCycle:
		if len(e.Cycle) == 0 {
			return "cyclic dependency detected: the operation would create a circular reference"
		}
		parts := make([]string, len(e.Cycle))
		for i, ref := range e.Cycle {
			parts[i] = ref.String()
		}
		return "cyclic dependency detected: " + strings.Join(parts, " -> ")
	default:
		return "invalid includes mutation"
	}
}

// Unwrap lets errors.Is match ErrConflictDetected and ErrCycleDetected
func (e *ValidationError) Unwrap() error {
	switch e.Kind {
	case KindConflict:
		return ErrConflictDetected
	case KindCycle:
		return ErrCycleDetected
	default:
		return nil
	}
}

func conflictError(existing, rejected Node) *ValidationError {
	ex, rej := existing.Ref(), rejected.Ref()
	return &ValidationError{Kind: KindConflict, Existing: &ex, Rejected: &rej}
}

func (g *Graph) cycleError(path []int) *ValidationError {
	refs := make([]VersionRef, len(path))
	for i, idx := range path {
		refs[i] = g.nodes[idx].Ref()
	}
	return &ValidationError{Kind: KindCycle, Cycle: refs}
}
