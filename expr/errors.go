package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is matched by every *ParseError.
	ErrSyntax = errors.New("syntax error")

	// ErrTooDeep indicates an expression nested beyond the configured depth limit.
	ErrTooDeep = errors.New("expression too deeply nested")

	// ErrDivisionByZero is matched by *EvalError values of kind DivisionByZero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrInvalidOperation is matched by *EvalError values of kind InvalidOperation.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrOverflow is matched by *EvalError values of kind Overflow.
	ErrOverflow = errors.New("numerical result out of range")
)

// ParseError reports malformed input. Pos is the byte offset of the
// offending token, or -1 when no single position applies.
type ParseError struct {
	Pos int
	Msg string

	// cause is ErrTooDeep for nesting failures, nil otherwise.
	cause error
}

func newParseError(pos int, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string {
	return e.Msg
}

// Is reports ErrSyntax for all parse errors and ErrTooDeep for nesting failures.
func (e *ParseError) Is(target error) bool {
	if target == ErrSyntax {
		return true
	}
	return e.cause != nil && target == e.cause
}

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	DivisionByZero ErrorKind = iota + 1
	InvalidOperation
	Overflow
	TooDeep
)

var errorKindNames = map[ErrorKind]string{
	DivisionByZero:   "division_by_zero",
	InvalidOperation: "invalid_operation",
	Overflow:         "overflow",
	TooDeep:          "too_deep",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// EvalError reports a semantically invalid operation.
type EvalError struct {
	Kind ErrorKind
	Op   BinaryOp // operator that failed; zero for TooDeep
	Msg  string
}

func (e *EvalError) Error() string {
	return e.Msg
}

// Is maps the error kind onto its sentinel.
func (e *EvalError) Is(target error) bool {
	switch e.Kind {
	case DivisionByZero:
		return target == ErrDivisionByZero
	case InvalidOperation:
		return target == ErrInvalidOperation
	case Overflow:
		return target == ErrOverflow
	case TooDeep:
		return target == ErrTooDeep
	}
	return false
}
