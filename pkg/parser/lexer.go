package parser

import (
	"fmt"

	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/diag"
)

// TokenType identifies a lexical token.
type TokenType string

const (
	EOF    TokenType = "EOF"
	LPAREN TokenType = "("
	RPAREN TokenType = ")"
	INT    TokenType = "INT"
	STRING TokenType = "STRING"
	IDENT  TokenType = "IDENT"

	SET      TokenType = "set"
	IF       TokenType = "if"
	ELSE     TokenType = "else"
	END      TokenType = "end"
	TIMES    TokenType = "times"
	FOREVER  TokenType = "forever"
	FUNCTION TokenType = "function"
	TRUE     TokenType = "true"
	FALSE    TokenType = "false"
	NULL     TokenType = "null"
)

var keywords = map[string]TokenType{
	"set":      SET,
	"if":       IF,
	"else":     ELSE,
	"end":      END,
	"times":    TIMES,
	"forever":  FOREVER,
	"function": FUNCTION,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
}

// IsKeyword reports whether name is reserved and cannot be used as a symbol.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// Token is a lexeme with its source span. Raw is the exact source text.
type Token struct {
	Type TokenType
	Raw  string
	Span ast.Span
}

func (t Token) describe() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case INT, STRING, IDENT:
		return fmt.Sprintf("%q", t.Raw)
	default:
		return fmt.Sprintf("'%s'", t.Raw)
	}
}

type lexer struct {
	src    string
	pos    int
	line   int
	column int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, column: 1}
}

// tokenize splits src into tokens, failing on the first lexical error.
func tokenize(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

func (l *lexer) peekByte(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) advance() {
	if l.pos >= len(l.src) {
		return
	}
	if l.src[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekByte(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (Token, error) {
	l.skipTrivia()
	start := l.pos
	startPos := ast.Position{Line: l.line, Column: l.column}
	span := func() ast.Span {
		return ast.Span{From: start, To: l.pos, Start: startPos}
	}
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Span: span()}, nil
	}

	ch := l.src[l.pos]
	switch {
	case ch == '(':
		l.advance()
		return Token{Type: LPAREN, Raw: "(", Span: span()}, nil
	case ch == ')':
		l.advance()
		return Token{Type: RPAREN, Raw: ")", Span: span()}, nil
	case ch == '"':
		l.advance()
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			l.advance()
		}
		if l.pos >= len(l.src) {
			return Token{}, diag.Syntaxf(span(), "unterminated string literal")
		}
		l.advance()
		return Token{Type: STRING, Raw: l.src[start:l.pos], Span: span()}, nil
	case isDigit(ch) || (ch == '-' && isDigit(l.peekByte(1))):
		l.advance()
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance()
		}
		if l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
				l.advance()
			}
			return Token{}, diag.Syntaxf(span(), "malformed number %q", l.src[start:l.pos])
		}
		return Token{Type: INT, Raw: l.src[start:l.pos], Span: span()}, nil
	case isIdentStart(ch):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.advance()
		}
		raw := l.src[start:l.pos]
		if kw, ok := keywords[raw]; ok {
			return Token{Type: kw, Raw: raw, Span: span()}, nil
		}
		return Token{Type: IDENT, Raw: raw, Span: span()}, nil
	default:
		l.advance()
		return Token{}, diag.Syntaxf(span(), "illegal character %q", ch)
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// IsSymbol reports whether name can be written as a Symbol in source.
func IsSymbol(name string) bool {
	if name == "" || !isIdentStart(name[0]) || IsKeyword(name) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '?' || ch == '!' || ch == '-'
}
