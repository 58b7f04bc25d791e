// Package expr parses and evaluates arithmetic expressions.
//
// The grammar covers numeric literals, unary + and -, the binary operators
// + - * / // % ** and parentheses. Parsing and evaluation are pure functions
// of their input and are safe to call from multiple goroutines.
package expr

import (
	"fmt"
	"strconv"
)

// Expr is the interface implemented by all AST nodes. The set of
// implementations is closed: *NumberExpr, *UnaryExpr and *BinaryExpr.
type Expr interface {
	expr() // marker method
	String() string
}

// UnaryOp is a prefix sign operator.
type UnaryOp int

const (
	UnaryPlus UnaryOp = iota + 1
	UnaryMinus
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryPlus:
		return "+"
	case UnaryMinus:
		return "-"
	}
	return fmt.Sprintf("unary(%d)", int(op))
}

// BinaryOp is an infix arithmetic operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota + 1
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
)

var binaryOpNames = map[BinaryOp]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpFloorDiv: "//",
	OpMod:      "%",
	OpPow:      "**",
}

func (op BinaryOp) String() string {
	if name, ok := binaryOpNames[op]; ok {
		return name
	}
	return fmt.Sprintf("binary(%d)", int(op))
}

// NumberExpr represents a numeric literal.
type NumberExpr struct {
	Value float64
}

func (e *NumberExpr) expr() {}
func (e *NumberExpr) String() string {
	return strconv.FormatFloat(e.Value, 'g', -1, 64)
}

// UnaryExpr represents a signed operand (e.g. -a).
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr

	height int
}

func (e *UnaryExpr) expr() {}
func (e *UnaryExpr) String() string {
	return fmt.Sprintf("(%s%s)", e.Op, e.Operand)
}

// BinaryExpr represents a binary operation (e.g. a + b).
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr

	height int
}

func (e *BinaryExpr) expr() {}
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// heightOf returns the tree height recorded by the parser. Nodes built
// outside the parser report 1; the evaluator guards those separately.
func heightOf(e Expr) int {
	switch n := e.(type) {
	case *UnaryExpr:
		if n.height > 0 {
			return n.height
		}
	case *BinaryExpr:
		if n.height > 0 {
			return n.height
		}
	}
	return 1
}
