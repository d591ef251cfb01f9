package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// evalContext returns the functions available to configuration expressions.
func (l *Loader) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env":      l.envFunc(),
			"upper":    stdlib.UpperFunc,
			"lower":    stdlib.LowerFunc,
			"join":     stdlib.JoinFunc,
			"format":   stdlib.FormatFunc,
			"coalesce": stdlib.CoalesceFunc,
		},
	}
}

// envFunc implements env(name, [default]): the value of an environment
// variable, or the optional default when it is unset.
func (l *Loader) envFunc() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		VarParam: &function.Parameter{Name: "default", Type: cty.String},
		Type:     function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			if v, ok := l.lookupEnv(args[0].AsString()); ok {
				return cty.StringVal(v), nil
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return cty.StringVal(""), nil
		},
	})
}
