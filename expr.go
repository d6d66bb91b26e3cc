package xltransform

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CheckEvaluator evaluates column check expressions.
type CheckEvaluator interface {
	// Check reports whether the expression holds for the given coerced value and raw text.
	Check(expression string, value any, raw string) (bool, error)
}

// exprEvaluator implements CheckEvaluator using expr-lang/expr.
type exprEvaluator struct {
	cache sync.Map // expression string → compiled *vm.Program
}

// NewCheckEvaluator creates a check evaluator backed by expr-lang/expr.
// The expression sees two variables: value (the coerced cell) and raw.
func NewCheckEvaluator() CheckEvaluator {
	return &exprEvaluator{}
}

func (e *exprEvaluator) Check(expression string, value any, raw string) (bool, error) {
	if expression == "" {
		return true, nil
	}
	program, err := e.compile(expression)
	if err != nil {
		return false, fmt.Errorf("compile check %q: %w", expression, err)
	}
	result, err := expr.Run(program, checkEnv(value, raw))
	if err != nil {
		return false, fmt.Errorf("evaluate check %q: %w", expression, err)
	}
	if result == nil {
		return false, nil
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("check %q evaluated to %T, expected bool", expression, result)
	}
	return b, nil
}

func (e *exprEvaluator) compile(expression string) (*vm.Program, error) {
	if cached, ok := e.cache.Load(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := compileCheck(expression)
	if err != nil {
		return nil, err
	}
	e.cache.Store(expression, program)
	return program, nil
}

// compileCheck compiles a check expression without a typed environment so
// the same program serves every data type.
func compileCheck(expression string) (*vm.Program, error) {
	return expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
}

func checkEnv(value any, raw string) map[string]any {
	return map[string]any{
		"value": value,
		"raw":   raw,
	}
}
