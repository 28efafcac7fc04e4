package exprs

import (
	"fmt"
	"strings"
)

// ExpressionError reports a string that triggered expression parsing but
// falls outside the permitted grammar, or that failed during evaluation
// for a reason other than an unresolved name.
type ExpressionError struct {
	Expr   string
	Detail string
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression %q: %s", e.Expr, e.Detail)
}

// UnresolvedReferenceError reports names (or, at the resolver level,
// tree paths) that could not be resolved yet. The resolver treats it as
// a retry signal until its pass ceiling is reached, at which point it is
// surfaced as the hard failure.
type UnresolvedReferenceError struct {
	Refs []string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference(s): %s", strings.Join(e.Refs, ", "))
}
