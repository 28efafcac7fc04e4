package compiler

import (
	"fmt"
	"strings"
)

// DimensionMismatchError reports a parameter tensor missing a value at
// a coordinate the assembly needed. Composition should have filled
// every coordinate, so a miss means the tensor and the index space
// disagree; assembly fails fast rather than guessing.
type DimensionMismatchError struct {
	Parameter  string
	Coordinate []string
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("parameter %q has no value at [%s]", e.Parameter, strings.Join(e.Coordinate, ", "))
}
