// Package petalcalc evaluates arithmetic expressions.
//
// EvaluateExpression is the one-call entry point. Calculator adds a depth
// limit, structured logging and runtime events for callers such as the
// interactive shell:
//
//	calc := petalcalc.New(petalcalc.WithMaxDepth(500))
//	v, err := calc.Evaluate("2 ** 3 ** 2")
//
// Every failure is an *EvaluationError whose Stage tells whether the input
// was malformed (StageParse) or the arithmetic was invalid (StageEval).
package petalcalc

import (
	"errors"

	"github.com/petal-labs/petalcalc/expr"
)

// Stage identifies the pipeline step that failed.
type Stage string

const (
	StageParse Stage = "parse"
	StageEval  Stage = "eval"
)

// EvaluationError wraps a parse or evaluation failure for one source string.
type EvaluationError struct {
	Stage  Stage
	Source string
	Err    error // *expr.ParseError or *expr.EvalError
}

func (e *EvaluationError) Error() string {
	return e.Err.Error()
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Kind returns a short machine-readable classification of the failure,
// suitable for metric attributes.
func (e *EvaluationError) Kind() string {
	var evalErr *expr.EvalError
	switch {
	case errors.As(e.Err, &evalErr):
		return evalErr.Kind.String()
	case errors.Is(e.Err, expr.ErrTooDeep):
		return "too_deep"
	default:
		return "syntax"
	}
}

// EvaluateExpression parses and evaluates source with the default depth limit.
func EvaluateExpression(source string) (float64, error) {
	return evaluate(source, expr.DefaultMaxDepth)
}

func evaluate(source string, maxDepth int) (float64, error) {
	tree, err := expr.ParseWithLimit(source, maxDepth)
	if err != nil {
		return 0, &EvaluationError{Stage: StageParse, Source: source, Err: err}
	}
	value, err := expr.EvalWithLimit(tree, maxDepth)
	if err != nil {
		return 0, &EvaluationError{Stage: StageEval, Source: source, Err: err}
	}
	return value, nil
}
