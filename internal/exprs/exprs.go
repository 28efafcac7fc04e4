// Package exprs evaluates the expression mini-language embedded in
// configuration string values. Expressions use HCL expression syntax and
// run against a closed hcl.EvalContext: the only resolvable names are
// the keys of the already-resolved configuration tree, and the only
// callable functions are a fixed arithmetic/collection allowlist. There
// is no host-language evaluation and no way to cause side effects.
package exprs

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// triggerCalls are the function names whose presence marks a string as
// an expression rather than a literal.
var triggerCalls = []string{"range(", "sum(", "min(", "max(", "pow(", "zip("}

// LooksLikeExpression reports whether a string value should be parsed as
// an expression. The check is purely syntactic and deterministic: a
// bracketed collection literal/comprehension, or a recognized function
// call. Everything else is a literal string.
func LooksLikeExpression(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if s[0] == '[' || s[0] == '{' {
		return true
	}
	for _, call := range triggerCalls {
		if strings.Contains(s, call) {
			return true
		}
	}
	return false
}

// pendingValue reports whether a value still carries unresolved work: a
// string that is itself an expression or a ${}/$ENV{} placeholder, or a
// collection containing one anywhere beneath it.
func pendingValue(v any) bool {
	switch val := v.(type) {
	case string:
		return LooksLikeExpression(val) ||
			strings.Contains(val, "${") ||
			strings.Contains(val, "$ENV{")
	case map[string]any:
		for _, item := range val {
			if pendingValue(item) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if pendingValue(item) {
				return true
			}
		}
	}
	return false
}

// Evaluate parses and evaluates one expression against the supplied
// environment (the resolved configuration tree, read-only). It returns
// an *ExpressionError for grammar or evaluation failures and an
// *UnresolvedReferenceError when the expression names variables the
// environment does not (yet) contain.
func Evaluate(expr string, env map[string]any) (any, error) {
	parsed, diags := hclsyntax.ParseExpression([]byte(expr), "<config>", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &ExpressionError{Expr: expr, Detail: diags.Error()}
	}

	// Forward references surface as missing names, not grammar errors,
	// so the resolver can retry on a later pass. A name that is present
	// but still holds unresolved work is the same retry signal: which
	// sibling resolves first must not depend on iteration order.
	var missing []string
	for _, traversal := range parsed.Variables() {
		root := traversal.RootName()
		if v, ok := env[root]; !ok || pendingValue(v) {
			missing = append(missing, root)
		}
	}
	if len(missing) > 0 {
		return nil, &UnresolvedReferenceError{Refs: missing}
	}

	variables := make(map[string]cty.Value, len(env))
	for name, val := range env {
		cv, err := nativeToCty(val)
		if err != nil {
			return nil, &ExpressionError{Expr: expr, Detail: "environment value " + name + ": " + err.Error()}
		}
		variables[name] = cv
	}

	evalCtx := &hcl.EvalContext{
		Variables: variables,
		Functions: evalFunctions(),
	}

	result, diags := parsed.Value(evalCtx)
	if diags.HasErrors() {
		return nil, &ExpressionError{Expr: expr, Detail: diags.Error()}
	}

	native, err := ctyToNative(result)
	if err != nil {
		return nil, &ExpressionError{Expr: expr, Detail: err.Error()}
	}
	return native, nil
}
