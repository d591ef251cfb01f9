package hcl

import (
	"errors"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// decodeStringOrList accepts either a single string or a list of strings,
// e.g. allowed_hosts = "example.com" or ["a.example", "b.example"].
func decodeStringOrList(attr *hcl.Attribute, evalCtx *hcl.EvalContext) ([]string, hcl.Diagnostics) {
	if attr == nil {
		return nil, nil
	}
	val, diags := attr.Expr.Value(evalCtx)
	if diags.HasErrors() || val.IsNull() {
		return nil, diags
	}
	if val.Type() == cty.String {
		return []string{val.AsString()}, diags
	}

	list, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, diags.Append(attrError(attr, "Invalid value", "Expected a string or a list of strings."))
	}
	var out []string
	if err := gocty.FromCtyValue(list, &out); err != nil {
		return nil, diags.Append(attrError(attr, "Invalid value", err.Error()))
	}
	return out, diags
}

// nativeValue converts a primitive cty value into the Go value the settings
// serializer understands. Whole numbers become int64.
func nativeValue(val cty.Value) (any, error) {
	if !val.IsKnown() {
		return nil, errors.New("value is not known")
	}
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Bool:
		return val.True(), nil
	case cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	default:
		return nil, errors.New("must be a string, number or bool")
	}
}

func attrError(attr *hcl.Attribute, summary, detail string) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  attr.Expr.Range().Ptr(),
	}
}
