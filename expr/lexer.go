package expr

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenKind identifies the type of a lexer token.
type TokenKind int

const (
	TokenNumber TokenKind = iota // numeric literal
	TokenIdent                   // identifier (never valid, lexed for error reporting)

	// Operators
	TokenPlus     // +
	TokenMinus    // -
	TokenStar     // *
	TokenSlash    // /
	TokenFloorDiv // //
	TokenPercent  // %
	TokenPower    // **

	// Delimiters
	TokenLParen // (
	TokenRParen // )

	TokenEOF
)

var tokenNames = map[TokenKind]string{
	TokenNumber:   "number",
	TokenIdent:    "identifier",
	TokenPlus:     "+",
	TokenMinus:    "-",
	TokenStar:     "*",
	TokenSlash:    "/",
	TokenFloorDiv: "//",
	TokenPercent:  "%",
	TokenPower:    "**",
	TokenLParen:   "(",
	TokenRParen:   ")",
	TokenEOF:      "EOF",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token is a lexed token with position information.
type Token struct {
	Kind  TokenKind
	Value string // raw text of the token
	Pos   int    // byte offset in source
}

// Lexer tokenizes expression strings.
type Lexer struct {
	src    string
	pos    int
	tokens []Token
}

// Lex tokenizes the input string and returns all tokens.
// The last token is always TokenEOF.
func Lex(src string) ([]Token, error) {
	l := &Lexer{src: src}
	if err := l.lexAll(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *Lexer) lexAll() error {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			l.tokens = append(l.tokens, Token{Kind: TokenEOF, Pos: l.pos})
			return nil
		}

		ch, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		if l.tryEmitDoubleCharToken(ch) || l.tryEmitSingleCharToken(ch) {
			continue
		}

		switch {
		case isDigit(ch) || (ch == '.' && isDigit(rune(l.peekNext()))):
			l.lexNumber()
		case isIdentStart(ch):
			l.lexIdent()
		default:
			return newParseError(l.pos, "unexpected character %q at position %d", string(ch), l.pos)
		}
	}
}

func (l *Lexer) tryEmitDoubleCharToken(ch rune) bool {
	switch {
	case ch == '*' && l.peekNext() == '*':
		l.emit2(TokenPower)
	case ch == '/' && l.peekNext() == '/':
		l.emit2(TokenFloorDiv)
	default:
		return false
	}
	return true
}

func (l *Lexer) tryEmitSingleCharToken(ch rune) bool {
	switch ch {
	case '+':
		l.emit1(TokenPlus)
	case '-':
		l.emit1(TokenMinus)
	case '*':
		l.emit1(TokenStar)
	case '/':
		l.emit1(TokenSlash)
	case '%':
		l.emit1(TokenPercent)
	case '(':
		l.emit1(TokenLParen)
	case ')':
		l.emit1(TokenRParen)
	default:
		return false
	}
	return true
}

func (l *Lexer) peekNext() byte {
	next := l.pos + 1
	if next >= len(l.src) {
		return 0
	}
	return l.src[next]
}

func (l *Lexer) emit1(kind TokenKind) {
	l.tokens = append(l.tokens, Token{Kind: kind, Value: l.src[l.pos : l.pos+1], Pos: l.pos})
	l.pos++
}

func (l *Lexer) emit2(kind TokenKind) {
	l.tokens = append(l.tokens, Token{Kind: kind, Value: l.src[l.pos : l.pos+2], Pos: l.pos})
	l.pos += 2
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		ch, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(ch) {
			break
		}
		l.pos += size
	}
}

// lexNumber reads "3", "3.14", "3." and ".5". A second '.' ends the literal.
func (l *Lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.src) && isDigit(rune(l.src[l.pos])) {
		l.pos++
	}
	// decimal part
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && isDigit(rune(l.src[l.pos])) {
			l.pos++
		}
	}
	l.tokens = append(l.tokens, Token{Kind: TokenNumber, Value: l.src[start:l.pos], Pos: start})
}

func (l *Lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) {
		ch, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(ch) {
			break
		}
		l.pos += size
	}
	l.tokens = append(l.tokens, Token{Kind: TokenIdent, Value: l.src[start:l.pos], Pos: start})
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
