package expr

import (
	"errors"
	"strconv"
)

// DefaultMaxDepth bounds nesting when no explicit limit is given.
const DefaultMaxDepth = 200

// Parse parses an expression string into an AST using DefaultMaxDepth.
func Parse(input string) (Expr, error) {
	return ParseWithLimit(input, DefaultMaxDepth)
}

// ParseWithLimit parses an expression string into an AST. Both the parser's
// recursion and the height of the resulting tree are bounded by maxDepth;
// a non-positive maxDepth selects DefaultMaxDepth.
func ParseWithLimit(input string, maxDepth int) (Expr, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	if tokens[0].Kind == TokenEOF {
		return nil, newParseError(tokens[0].Pos, "empty expression")
	}
	p := &parser{tokens: tokens, maxDepth: maxDepth}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.current().Kind != TokenEOF {
		return nil, p.unexpected(p.current())
	}
	return expr, nil
}

type parser struct {
	tokens   []Token
	pos      int
	depth    int
	maxDepth int
}

func (p *parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.current()
	if tok.Kind != kind {
		return tok, newParseError(tok.Pos, "expected %s but got %s at position %d", kind, tok.Kind, tok.Pos)
	}
	p.advance()
	return tok, nil
}

func (p *parser) unexpected(tok Token) *ParseError {
	switch tok.Kind {
	case TokenEOF:
		return newParseError(tok.Pos, "unexpected end of expression at position %d", tok.Pos)
	case TokenIdent:
		return newParseError(tok.Pos, "unexpected identifier %q at position %d", tok.Value, tok.Pos)
	case TokenNumber:
		return newParseError(tok.Pos, "unexpected number %s at position %d", tok.Value, tok.Pos)
	}
	return newParseError(tok.Pos, "unexpected token %s at position %d", tok.Kind, tok.Pos)
}

func (p *parser) tooDeep(pos int) *ParseError {
	err := newParseError(pos, "expression too deeply nested (max depth %d) at position %d", p.maxDepth, pos)
	err.cause = ErrTooDeep
	return err
}

func (p *parser) binary(op BinaryOp, left, right Expr, pos int) (Expr, error) {
	h := 1 + max(heightOf(left), heightOf(right))
	if h > p.maxDepth {
		return nil, p.tooDeep(pos)
	}
	return &BinaryExpr{Op: op, Left: left, Right: right, height: h}, nil
}

func (p *parser) unary(op UnaryOp, operand Expr, pos int) (Expr, error) {
	h := 1 + heightOf(operand)
	if h > p.maxDepth {
		return nil, p.tooDeep(pos)
	}
	return &UnaryExpr{Op: op, Operand: operand, height: h}, nil
}

// Precedence levels (low to high):
// 1. +, - (left associative)
// 2. *, /, //, % (left associative)
// 3. unary +, -
// 4. ** (right associative, its right operand may carry a sign)
// 5. number literal, parenthesised expression

var additiveOps = map[TokenKind]BinaryOp{
	TokenPlus:  OpAdd,
	TokenMinus: OpSub,
}

var multiplicativeOps = map[TokenKind]BinaryOp{
	TokenStar:     OpMul,
	TokenSlash:    OpDiv,
	TokenFloorDiv: OpFloorDiv,
	TokenPercent:  OpMod,
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseAdditive()
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := additiveOps[p.current().Kind]
		if !ok {
			return left, nil
		}
		tok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		if left, err = p.binary(op, left, right, tok.Pos); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := multiplicativeOps[p.current().Kind]
		if !ok {
			return left, nil
		}
		tok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if left, err = p.binary(op, left, right, tok.Pos); err != nil {
			return nil, err
		}
	}
}

// parseUnary is the only re-entry point for nested parsing, so the
// recursion depth is tracked here.
func (p *parser) parseUnary() (Expr, error) {
	tok := p.current()
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, p.tooDeep(tok.Pos)
	}

	var op UnaryOp
	switch tok.Kind {
	case TokenPlus:
		op = UnaryPlus
	case TokenMinus:
		op = UnaryMinus
	default:
		return p.parsePower()
	}
	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.unary(op, operand, tok.Pos)
}

func (p *parser) parsePower() (Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.current().Kind != TokenPower {
		return base, nil
	}
	tok := p.advance()
	exponent, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.binary(OpPow, base, exponent, tok.Pos)
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.current()

	switch tok.Kind {
	case TokenNumber:
		p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return nil, newParseError(tok.Pos, "number %s out of range at position %d", tok.Value, tok.Pos)
			}
			return nil, newParseError(tok.Pos, "invalid number %q at position %d", tok.Value, tok.Pos)
		}
		return &NumberExpr{Value: val}, nil

	case TokenLParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, p.unexpected(tok)
	}
}
