package versioning

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	mm "github.com/Masterminds/semver/v3"
)

// ErrUnparsableVersion is returned by ParseVersion when the input does not match
// the X[.Y[.Z[.BUILD]]] grammar.
var ErrUnparsableVersion = errors.New("unparsable version")

var versionPattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:\.(\d+))?$`)

// Version is a parsed version string: major, minor, patch and build.
// Missing trailing components are zero.
type Version [4]int

// Major returns the first component.
func (v Version) Major() int { return v[0] }

// Minor returns the second component.
func (v Version) Minor() int { return v[1] }

// Patch returns the third component.
func (v Version) Patch() int { return v[2] }

// Build returns the fourth component.
func (v Version) Build() int { return v[3] }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// Parse normalizes a dotted version string of one to four non-negative integer
// components into a Version. The boolean is false for anything else, including
// the empty string and components that overflow int.
func Parse(raw string) (Version, bool) {
	match := versionPattern.FindStringSubmatch(raw)
	if match == nil {
		return Version{}, false
	}

	var v Version
	for i, part := range match[1:] {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, false
		}
		v[i] = n
	}
	return v, true
}

// ParseVersion is Parse for callers that want an error.
func ParseVersion(raw string) (Version, error) {
	v, ok := Parse(raw)
	if !ok {
		return Version{}, fmt.Errorf("versioning: parse %q: %w", raw, ErrUnparsableVersion)
	}
	return v, nil
}

// MustParse is like ParseVersion but panics on error.
func MustParse(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Compatible reports whether v and o agree on major, minor and patch.
func (v Version) Compatible(o Version) bool {
	return v[0] == o[0] && v[1] == o[1] && v[2] == o[2]
}

// Compatible reports whether two version strings are compatible.
// Unparsable input is never compatible with anything.
func Compatible(a, b string) bool {
	va, ok := Parse(a)
	if !ok {
		return false
	}
	vb, ok := Parse(b)
	if !ok {
		return false
	}
	return va.Compatible(vb)
}

// Compare compares v and o component by component, returning -1, 0 or 1.
func (v Version) Compare(o Version) int {
	for i := range v {
		switch {
		case v[i] < o[i]:
			return -1
		case v[i] > o[i]:
			return 1
		}
	}
	return 0
}

// Semver converts v to a semantic version. The build component is carried as
// build metadata, so it does not take part in constraint checks.
func (v Version) Semver() *mm.Version {
	return mm.New(uint64(v[0]), uint64(v[1]), uint64(v[2]), "", strconv.Itoa(v[3]))
}

// MatchConstraint reports whether raw satisfies a semver constraint such as
// "~1.2" or ">=1.0.0 <2.0.0". Unparsable versions never match.
func MatchConstraint(raw, constraint string) (bool, error) {
	c, err := mm.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("versioning: parse constraint %q: %w", constraint, err)
	}
	v, ok := Parse(raw)
	if !ok {
		return false, nil
	}
	return c.Check(v.Semver()), nil
}

// Newer orders version strings newest first: parsable versions by their
// components, unparsable ones after them, ties broken by reverse lexical order.
func Newer(a, b string) bool {
	va, aok := Parse(a)
	vb, bok := Parse(b)
	switch {
	case aok && bok:
		if cmp := va.Compare(vb); cmp != 0 {
			return cmp > 0
		}
		return a > b
	case aok != bok:
		return aok
	default:
		return a > b
	}
}

// SortDescending sorts version strings newest first
func SortDescending(raws []string) {
	sort.SliceStable(raws, func(i, j int) bool { return Newer(raws[i], raws[j]) })
}
