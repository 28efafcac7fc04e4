package exprs

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// sumFunc adds numbers. Arguments may be numbers or collections of
// numbers, so both sum(1, 2, 3) and sum(year_split...) work.
var sumFunc = function.New(&function.Spec{
	VarParam: &function.Parameter{
		Name: "values",
		Type: cty.DynamicPseudoType,
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		total := cty.Zero
		var add func(v cty.Value) error
		add = func(v cty.Value) error {
			if v.Type().IsTupleType() || v.Type().IsListType() || v.Type().IsSetType() {
				it := v.ElementIterator()
				for it.Next() {
					_, ev := it.Element()
					if err := add(ev); err != nil {
						return err
					}
				}
				return nil
			}
			if v.Type() != cty.Number {
				return function.NewArgErrorf(0, "cannot sum value of type %s", v.Type().FriendlyName())
			}
			total = total.Add(v)
			return nil
		}
		for _, arg := range args {
			if err := add(arg); err != nil {
				return cty.NilVal, err
			}
		}
		return total, nil
	},
})

// zipFunc pairs two sequences element-wise into a list of two-element
// tuples, truncating to the shorter input.
var zipFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "a", Type: cty.DynamicPseudoType},
		{Name: "b", Type: cty.DynamicPseudoType},
	},
	Type: function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		left := collectElements(args[0])
		right := collectElements(args[1])
		n := len(left)
		if len(right) < n {
			n = len(right)
		}
		if n == 0 {
			return cty.EmptyTupleVal, nil
		}
		pairs := make([]cty.Value, n)
		for i := 0; i < n; i++ {
			pairs[i] = cty.TupleVal([]cty.Value{left[i], right[i]})
		}
		return cty.TupleVal(pairs), nil
	},
})

func collectElements(v cty.Value) []cty.Value {
	if !v.CanIterateElements() {
		return nil
	}
	out := make([]cty.Value, 0, v.LengthInt())
	it := v.ElementIterator()
	for it.Next() {
		_, ev := it.Element()
		out = append(out, ev)
	}
	return out
}

// evalFunctions is the complete allowlist available inside expressions.
// Nothing outside this table resolves; the sandbox boundary is this map
// plus the variables supplied per evaluation.
func evalFunctions() map[string]function.Function {
	return map[string]function.Function{
		"range":   stdlib.RangeFunc,
		"sum":     sumFunc,
		"min":     stdlib.MinFunc,
		"max":     stdlib.MaxFunc,
		"pow":     stdlib.PowFunc,
		"abs":     stdlib.AbsoluteFunc,
		"ceil":    stdlib.CeilFunc,
		"floor":   stdlib.FloorFunc,
		"zip":     zipFunc,
		"concat":  stdlib.ConcatFunc,
		"flatten": stdlib.FlattenFunc,
		"keys":    stdlib.KeysFunc,
		"values":  stdlib.ValuesFunc,
		"length":  stdlib.LengthFunc,
	}
}
