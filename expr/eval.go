package expr

import (
	"fmt"
	"math"
)

// Eval evaluates a parsed expression using DefaultMaxDepth as the recursion bound.
func Eval(e Expr) (float64, error) {
	return EvalWithLimit(e, DefaultMaxDepth)
}

// EvalWithLimit evaluates a parsed expression. Trees deeper than maxDepth
// fail with an *EvalError of kind TooDeep; a non-positive maxDepth selects
// DefaultMaxDepth. The result is always finite.
//
// e must be a tree built from this package's node types. Any other node or
// an out-of-range operator value is a programming error and panics.
func EvalWithLimit(e Expr, maxDepth int) (float64, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	ev := &evaluator{maxDepth: maxDepth}
	return ev.eval(e)
}

type evaluator struct {
	depth    int
	maxDepth int
}

func (ev *evaluator) eval(e Expr) (float64, error) {
	ev.depth++
	defer func() { ev.depth-- }()
	if ev.depth > ev.maxDepth {
		return 0, &EvalError{
			Kind: TooDeep,
			Msg:  fmt.Sprintf("expression too deeply nested (max depth %d)", ev.maxDepth),
		}
	}

	switch n := e.(type) {
	case *NumberExpr:
		return n.Value, nil

	case *UnaryExpr:
		return ev.evalUnary(n)

	case *BinaryExpr:
		return ev.evalBinary(n)

	default:
		panic(fmt.Sprintf("expr: unsupported node %T", e))
	}
}

func (ev *evaluator) evalUnary(n *UnaryExpr) (float64, error) {
	val, err := ev.eval(n.Operand)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case UnaryPlus:
		return val, nil
	case UnaryMinus:
		return -val, nil
	default:
		panic(fmt.Sprintf("expr: unknown unary operator %s", n.Op))
	}
}

func (ev *evaluator) evalBinary(n *BinaryExpr) (float64, error) {
	left, err := ev.eval(n.Left)
	if err != nil {
		return 0, err
	}
	right, err := ev.eval(n.Right)
	if err != nil {
		return 0, err
	}

	result, err := apply(n.Op, left, right)
	if err != nil {
		return 0, err
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, &EvalError{Kind: Overflow, Op: n.Op, Msg: fmt.Sprintf("%s: numerical result out of range", n.Op)}
	}
	return result, nil
}

func apply(op BinaryOp, left, right float64) (float64, error) {
	switch op {
	case OpAdd:
		return left + right, nil
	case OpSub:
		return left - right, nil
	case OpMul:
		return left * right, nil
	case OpDiv:
		if right == 0 {
			return 0, divisionByZero(op, "division by zero")
		}
		return left / right, nil
	case OpFloorDiv:
		if right == 0 {
			return 0, divisionByZero(op, "floor division by zero")
		}
		q, _ := floorDivMod(left, right)
		return q, nil
	case OpMod:
		if right == 0 {
			return 0, divisionByZero(op, "modulo by zero")
		}
		_, r := floorDivMod(left, right)
		return r, nil
	case OpPow:
		return pow(left, right)
	default:
		panic(fmt.Sprintf("expr: unknown binary operator %s", op))
	}
}

func divisionByZero(op BinaryOp, msg string) *EvalError {
	return &EvalError{Kind: DivisionByZero, Op: op, Msg: msg}
}

// floorDivMod returns the quotient rounded toward negative infinity and the
// matching remainder, whose sign follows the divisor. Working from fmod keeps
// q*b + r == a exact where a plain floor(a/b) would round.
func floorDivMod(a, b float64) (q, r float64) {
	r = math.Mod(a, b)
	div := (a - r) / b
	if r != 0 {
		if (b < 0) != (r < 0) {
			r += b
			div -= 1
		}
	} else {
		r = math.Copysign(0, b)
	}
	if div != 0 {
		q = math.Floor(div)
		if div-q > 0.5 {
			q += 1
		}
	} else {
		q = math.Copysign(0, a/b)
	}
	return q, r
}

func pow(base, exp float64) (float64, error) {
	if exp == 0 {
		return 1, nil
	}
	if base == 0 && exp < 0 {
		return 0, &EvalError{Kind: DivisionByZero, Op: OpPow, Msg: "zero cannot be raised to a negative power"}
	}
	if base < 0 && exp != math.Trunc(exp) {
		return 0, &EvalError{Kind: InvalidOperation, Op: OpPow, Msg: "negative number cannot be raised to a fractional power"}
	}
	return math.Pow(base, exp), nil
}
