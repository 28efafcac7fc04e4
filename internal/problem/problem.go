// Package problem is the compiler's output format: a symbolic linear
// program with named variable sets, per-index constraints, and a linear
// objective. The representation is solver-agnostic and serializes to
// JSON for the solve adapter.
package problem

import (
	"fmt"
	"strings"
)

// VarType classifies a variable set.
type VarType string

const (
	Continuous VarType = "continuous"
	Integer    VarType = "integer"
	Binary     VarType = "binary"
)

// Relation is a constraint's comparison operator.
type Relation string

const (
	LessEqual    Relation = "<="
	GreaterEqual Relation = ">="
	Equal        Relation = "=="
)

// Problem is a complete minimization problem.
type Problem struct {
	Name        string        `json:"name"`
	Variables   []VariableSet `json:"variables"`
	Constraints []Constraint  `json:"constraints"`
	Objective   LinearExpr    `json:"objective"`
}

// VariableSet declares one family of decision variables over an index
// space. Keys lists every instantiated coordinate, dimension values
// joined with "|". Continuous variables are non-negative unless Free.
type VariableSet struct {
	Name string   `json:"name"`
	Dims []string `json:"dims"`
	Type VarType  `json:"type"`
	Free bool     `json:"free,omitempty"`
	Keys []string `json:"keys"`
}

// Constraint is one instantiated row: Expr Relation RHS.
type Constraint struct {
	// Name is the family plus the coordinate, e.g.
	// "CapacityBalance[north|coal_plant|2030]".
	Name     string     `json:"name"`
	Family   string     `json:"family"`
	Expr     LinearExpr `json:"expr"`
	Relation Relation   `json:"relation"`
	RHS      float64    `json:"rhs"`
}

// LinearExpr is a sparse linear form: coefficient per variable instance
// plus a constant.
type LinearExpr struct {
	Terms    map[string]float64 `json:"terms"`
	Constant float64            `json:"constant,omitempty"`
}

// NewExpr returns an empty linear expression.
func NewExpr() LinearExpr {
	return LinearExpr{Terms: make(map[string]float64)}
}

// Add accumulates coeff onto the variable instance's coefficient.
func (e *LinearExpr) Add(key string, coeff float64) {
	if e.Terms == nil {
		e.Terms = make(map[string]float64)
	}
	e.Terms[key] += coeff
}

// AddExpr accumulates another expression scaled by factor.
func (e *LinearExpr) AddExpr(other LinearExpr, factor float64) {
	for key, coeff := range other.Terms {
		e.Add(key, coeff*factor)
	}
	e.Constant += other.Constant * factor
}

// Empty reports whether the expression has no terms and no constant.
func (e LinearExpr) Empty() bool {
	return len(e.Terms) == 0 && e.Constant == 0
}

// Key builds a variable instance identifier from a set name and its
// coordinate, e.g. Key("NewCapacity", "north", "coal_plant", "2030").
func Key(name string, coords ...string) string {
	return name + "[" + strings.Join(coords, "|") + "]"
}

// Coord joins dimension values the way VariableSet.Keys and the solve
// adapter's result maps expect.
func Coord(values ...string) string {
	return strings.Join(values, "|")
}

// ConstraintName labels one instantiated row of a family.
func ConstraintName(family string, coords ...string) string {
	return fmt.Sprintf("%s[%s]", family, strings.Join(coords, "|"))
}
