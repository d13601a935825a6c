package hcl

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// newEvalContext builds the variables and functions available to job files.
func newEvalContext(environ []string) *hcl.EvalContext {
	env := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		envVal = cty.MapVal(env)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"cpus": cty.NumberIntVal(int64(runtime.NumCPU())),
			"env":  envVal,
		},
		Functions: map[string]function.Function{
			"min": stdlib.MinFunc,
			"max": stdlib.MaxFunc,
		},
	}
}

// defaultEvalContext uses the live process environment.
func defaultEvalContext() *hcl.EvalContext {
	return newEvalContext(os.Environ())
}

// evalInto evaluates expr and stores it in target (a pointer to a Go value
// gocty understands) after converting it to want. A null result leaves target
// untouched and reports false.
func evalInto(expr hcl.Expression, evalCtx *hcl.EvalContext, want cty.Type, target any) (bool, error) {
	if expr == nil {
		return false, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return false, diags
	}
	if val.IsNull() {
		return false, nil
	}
	if !val.IsWhollyKnown() {
		return false, fmt.Errorf("%s: value is not known", expr.Range())
	}
	val, err := convert.Convert(val, want)
	if err != nil {
		return false, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	if err := gocty.FromCtyValue(val, target); err != nil {
		return false, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	return true, nil
}

func evalString(expr hcl.Expression, evalCtx *hcl.EvalContext, target *string) error {
	_, err := evalInto(expr, evalCtx, cty.String, target)
	return err
}

func evalInt(expr hcl.Expression, evalCtx *hcl.EvalContext, target *int) error {
	_, err := evalInto(expr, evalCtx, cty.Number, target)
	return err
}

func evalInt64(expr hcl.Expression, evalCtx *hcl.EvalContext, target *int64) error {
	_, err := evalInto(expr, evalCtx, cty.Number, target)
	return err
}

func evalBool(expr hcl.Expression, evalCtx *hcl.EvalContext, target *bool) error {
	_, err := evalInto(expr, evalCtx, cty.Bool, target)
	return err
}

// evalDuration accepts Go duration strings such as "500ms" or "2m".
func evalDuration(expr hcl.Expression, evalCtx *hcl.EvalContext, target *time.Duration) error {
	var s string
	ok, err := evalInto(expr, evalCtx, cty.String, &s)
	if err != nil || !ok {
		return err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: %w", expr.Range(), err)
	}
	*target = d
	return nil
}
