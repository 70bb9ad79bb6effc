// Package refsol compiles the closed-form reference solutions carried on the
// last line of a mesh snapshot into mesh evaluators.
//
// Expressions are written in x and y with the operators + - * / and ** (or
// ^), parentheses, the constants pi and E and the functions sin, cos, tan,
// exp, log and sqrt.
package refsol

import (
	"errors"
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Batmanabcdefg/hp-afem/internal/mesh"
	"github.com/Batmanabcdefg/hp-afem/internal/monitoring"
)

// ErrInvalidExpression is returned for expressions that do not compile.
var ErrInvalidExpression = errors.New("refsol: invalid expression")

var unary = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"exp":  math.Exp,
	"log":  math.Log,
	"sqrt": math.Sqrt,
}

func env(x, y float64) map[string]any {
	return map[string]any{"x": x, "y": y, "pi": math.Pi, "E": math.E}
}

func options() []expr.Option {
	opts := []expr.Option{expr.Env(env(0, 0))}
	for name, fn := range unary {
		opts = append(opts, expr.Function(name, wrap(name, fn)))
	}
	return opts
}

func wrap(name string, fn func(float64) float64) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument, got %d", name, len(params))
		}
		v, err := toFloat(params[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return fn(v), nil
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	}
	return 0, fmt.Errorf("non-numeric value %v (%T)", v, v)
}

// Compile parses and type-checks expression. Evaluation failures at a point
// yield NaN.
func Compile(expression string) (mesh.Evaluator, error) {
	prog, err := expr.Compile(expression, options()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, expression, err)
	}
	return evaluator(prog, expression), nil
}

func evaluator(prog *vm.Program, expression string) mesh.Evaluator {
	return func(x, y float64) float64 {
		out, err := expr.Run(prog, env(x, y))
		if err != nil {
			monitoring.Debugf("refsol: evaluating %q at (%g, %g): %v", expression, x, y, err)
			return math.NaN()
		}
		v, err := toFloat(out)
		if err != nil {
			monitoring.Debugf("refsol: %q at (%g, %g): %v", expression, x, y, err)
			return math.NaN()
		}
		return v
	}
}

// Compiler adapts Compile for mesh.Snapshot.ReferenceEvaluator.
var Compiler mesh.Compiler = Compile
