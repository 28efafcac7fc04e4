// Package broadcast expands wildcard shorthand in indexed configuration
// data into fully-indexed mappings. Inference of each dimension's member
// set and expansion against those sets are two separate steps so each
// can be tested on its own.
package broadcast

import (
	"fmt"
	"sort"
)

// Wildcard is the reserved key recognized at any dimension level.
const Wildcard = "*"

// Dimension describes one index level of a field, in declaration order
// (outermost first).
type Dimension struct {
	Name string
	// Declared is the explicitly declared member set for this dimension
	// (for example the model's region ids), if any.
	Declared []string
}

// Error reports a dimension whose member set could not be inferred.
type Error struct {
	Dimension string
	Detail    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot broadcast over dimension %q: %s", e.Dimension, e.Detail)
}

// InferSets computes the member set for every dimension. A dimension
// with a declared member set (for example the model's region ids) keeps
// exactly that set, and any concrete key outside it is rejected: data
// indexed by an unknown member would otherwise survive expansion and be
// silently ignored downstream. A dimension without a declared set takes
// the union of the concrete (non-wildcard) keys found at its depth; a
// level reached only through wildcards collapses to a single synthetic
// member, the minimal consistent interpretation.
func InferSets(data any, dims []Dimension) ([][]string, error) {
	concrete := make([]map[string]struct{}, len(dims))
	for i := range concrete {
		concrete[i] = make(map[string]struct{})
	}
	collectKeys(data, 0, concrete)

	sets := make([][]string, len(dims))
	for i, dim := range dims {
		if len(dim.Declared) > 0 {
			declared := make(map[string]struct{}, len(dim.Declared))
			members := make([]string, 0, len(dim.Declared))
			for _, m := range dim.Declared {
				if _, ok := declared[m]; !ok {
					declared[m] = struct{}{}
					members = append(members, m)
				}
			}
			for _, key := range sortedKeys(concrete[i]) {
				if _, ok := declared[key]; !ok {
					return nil, &Error{Dimension: dim.Name, Detail: fmt.Sprintf("key %q is not a declared member", key)}
				}
			}
			sets[i] = members
			continue
		}

		members := sortedKeys(concrete[i])
		if len(members) == 0 {
			if !hasEntriesAtDepth(data, i) {
				return nil, &Error{Dimension: dim.Name, Detail: "no declared members and no concrete keys"}
			}
			// Wildcard-only level: one synthetic member.
			members = []string{"1"}
		}
		sets[i] = members
	}
	return sets, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Expand broadcasts wildcard entries against the supplied member sets.
// Scalars act as implicit wildcards over every remaining dimension. A
// concrete key always wins over the wildcard at the same coordinate, and
// deeper levels expand independently beneath whichever entry won, so the
// innermost specific value prevails. Expanding already-expanded data is
// the identity.
func Expand(data any, sets [][]string) any {
	if data == nil {
		return nil
	}
	if len(sets) == 0 {
		return data
	}

	members := sets[0]
	m, ok := data.(map[string]any)
	if !ok {
		out := make(map[string]any, len(members))
		for _, member := range members {
			out[member] = Expand(data, sets[1:])
		}
		return out
	}

	wild, hasWild := m[Wildcard]
	out := make(map[string]any, len(members))
	for _, member := range members {
		if v, exists := m[member]; exists {
			out[member] = Expand(v, sets[1:])
			continue
		}
		if hasWild {
			out[member] = Expand(wild, sets[1:])
		}
	}
	return out
}

// collectKeys gathers concrete keys per depth. Scalar values terminate a
// branch; everything below them is wildcard-implied and contributes no
// keys.
func collectKeys(data any, depth int, acc []map[string]struct{}) {
	if depth >= len(acc) {
		return
	}
	m, ok := data.(map[string]any)
	if !ok {
		return
	}
	for key, val := range m {
		if key != Wildcard {
			acc[depth][key] = struct{}{}
		}
		collectKeys(val, depth+1, acc)
	}
}

// hasEntriesAtDepth reports whether any value (wildcard included) exists
// at the given depth, counting scalars as implicit wildcards that reach
// every depth beneath them.
func hasEntriesAtDepth(data any, depth int) bool {
	m, ok := data.(map[string]any)
	if !ok {
		// A scalar reaches all remaining depths implicitly.
		return data != nil
	}
	if depth == 0 {
		return len(m) > 0
	}
	for _, val := range m {
		if hasEntriesAtDepth(val, depth-1) {
			return true
		}
	}
	return false
}
