package parser

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/diag"
)

// Read parses source into a Program. Malformed input fails with a
// diag.KindSyntax error; no partial tree is returned.
func Read(source string) (*ast.Program, error) {
	tokens, err := tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.parseProgram()
}

// ReadFile reads and parses the program stored at path.
func ReadFile(path string) (*ast.Program, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read source %s: %w", path, err)
	}
	source := string(data)
	program, err := Read(source)
	if err != nil {
		return nil, source, err
	}
	return program, source, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

// last returns the most recently consumed token.
func (p *parser) last() Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) expect(tt TokenType, context string) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return Token{}, diag.Syntaxf(tok.Span, "expected '%s' %s, found %s", tt, context, tok.describe())
	}
	return p.advance(), nil
}

// spanFrom covers start through the last consumed token.
func (p *parser) spanFrom(start Token) ast.Span {
	end := p.last().Span.To
	if end < start.Span.From {
		end = start.Span.To
	}
	return ast.Span{From: start.Span.From, To: end, Start: start.Span.Start}
}

func annotate[T ast.Node](node T, span ast.Span) T {
	ast.SetSpan(node, span)
	return node
}

func (p *parser) parseProgram() (*ast.Program, error) {
	start := p.peek()
	var body []ast.Statement
	for p.peek().Type != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	return annotate(ast.NewProgram(body), p.spanFrom(start)), nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	tok := p.peek()
	switch tok.Type {
	case SET:
		return p.parseSet()
	case IF:
		return p.parseIf()
	case TIMES:
		return p.parseTimes()
	case FOREVER:
		return p.parseForever()
	case LPAREN:
		start := p.peek()
		callee, args, err := p.parseCallParts()
		if err != nil {
			return nil, err
		}
		return annotate(ast.NewCallStatement(callee, args), p.spanFrom(start)), nil
	case EOF:
		return nil, diag.Syntaxf(tok.Span, "unexpected end of input, expected a statement")
	default:
		return nil, diag.Syntaxf(tok.Span, "unexpected %s, expected a statement", tok.describe())
	}
}

// parseBlock reads statements until one of the terminators is next. The
// terminator is left unconsumed.
func (p *parser) parseBlock(opener Token, terminators ...TokenType) (*ast.Block, error) {
	start := p.peek()
	var body []ast.Statement
	for {
		tok := p.peek()
		for _, tt := range terminators {
			if tok.Type == tt {
				block := ast.NewBlock(body)
				span := ast.Span{From: start.Span.From, To: start.Span.From, Start: start.Span.Start}
				if len(body) > 0 {
					span = p.spanFrom(start)
				}
				return annotate(block, span), nil
			}
		}
		if tok.Type == EOF {
			return nil, diag.Syntaxf(opener.Span, "unterminated '%s' (missing 'end')", opener.Raw)
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
}

func (p *parser) parseSet() (ast.Statement, error) {
	start := p.advance()
	nameTok := p.peek()
	if nameTok.Type != IDENT {
		if IsKeyword(nameTok.Raw) {
			return nil, diag.Syntaxf(nameTok.Span, "'%s' is a keyword and cannot be assigned", nameTok.Raw)
		}
		return nil, diag.Syntaxf(nameTok.Span, "expected a symbol after 'set', found %s", nameTok.describe())
	}
	p.advance()
	name := annotate(ast.NewSymbol(nameTok.Raw), nameTok.Span)
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(END, "to close 'set'"); err != nil {
		return nil, err
	}
	return annotate(ast.NewSetStatement(name, value), p.spanFrom(start)), nil
}

func (p *parser) parseIf() (ast.Statement, error) {
	start := p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock(start, END, ELSE)
	if err != nil {
		return nil, err
	}
	var els *ast.Block
	if p.peek().Type == ELSE {
		elseTok := p.advance()
		els, err = p.parseBlock(elseTok, END)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(END, "to close 'if'"); err != nil {
		return nil, err
	}
	return annotate(ast.NewIfStatement(cond, then, els), p.spanFrom(start)), nil
}

func (p *parser) parseTimes() (ast.Statement, error) {
	start := p.advance()
	count, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock(start, END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(END, "to close 'times'"); err != nil {
		return nil, err
	}
	return annotate(ast.NewTimesStatement(count, body), p.spanFrom(start)), nil
}

// parseForever handles the statement form `forever ... end`.
func (p *parser) parseForever() (ast.Statement, error) {
	start := p.advance()
	count := annotate(ast.NewForever(), start.Span)
	body, err := p.parseBlock(start, END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(END, "to close 'forever'"); err != nil {
		return nil, err
	}
	return annotate(ast.NewTimesStatement(count, body), p.spanFrom(start)), nil
}

func (p *parser) parseExpression() (ast.Expression, error) {
	tok := p.peek()
	switch tok.Type {
	case INT:
		p.advance()
		value, err := strconv.ParseInt(tok.Raw, 10, 64)
		if err != nil {
			return nil, diag.Syntaxf(tok.Span, "integer literal %s out of range", tok.Raw)
		}
		return annotate(ast.NewNumber(value), tok.Span), nil
	case STRING:
		p.advance()
		return annotate(ast.NewString(tok.Raw[1:len(tok.Raw)-1]), tok.Span), nil
	case TRUE, FALSE:
		p.advance()
		return annotate(ast.NewBoolean(tok.Type == TRUE), tok.Span), nil
	case NULL:
		p.advance()
		return annotate(ast.NewNull(), tok.Span), nil
	case IDENT:
		p.advance()
		return annotate(ast.NewSymbol(tok.Raw), tok.Span), nil
	case FOREVER:
		p.advance()
		return annotate(ast.NewForever(), tok.Span), nil
	case LPAREN:
		callee, args, err := p.parseCallParts()
		if err != nil {
			return nil, err
		}
		return annotate(ast.NewCallExpression(callee, args), p.spanFrom(tok)), nil
	case FUNCTION:
		return p.parseFunction()
	case EOF:
		return nil, diag.Syntaxf(tok.Span, "unexpected end of input, expected an expression")
	default:
		return nil, diag.Syntaxf(tok.Span, "unexpected %s, expected an expression", tok.describe())
	}
}

func (p *parser) parseCallParts() (ast.Expression, []ast.Expression, error) {
	open := p.advance()
	if p.peek().Type == RPAREN {
		return nil, nil, diag.Syntaxf(p.spanThrough(open, p.peek()), "empty call: expected a callee")
	}
	callee, err := p.parseExpression()
	if err != nil {
		return nil, nil, err
	}
	var args []ast.Expression
	for {
		switch p.peek().Type {
		case RPAREN:
			p.advance()
			return callee, args, nil
		case EOF:
			return nil, nil, diag.Syntaxf(open.Span, "unterminated '(' (missing ')')")
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, nil, err
		}
		args = append(args, arg)
	}
}

func (p *parser) spanThrough(start, end Token) ast.Span {
	return ast.Span{From: start.Span.From, To: end.Span.To, Start: start.Span.Start}
}

func (p *parser) parseFunction() (ast.Expression, error) {
	start := p.advance()
	open, err := p.expect(LPAREN, "to open the parameter list")
	if err != nil {
		return nil, err
	}
	var symbols []*ast.Symbol
	seen := make(map[string]bool)
	for p.peek().Type != RPAREN {
		tok := p.peek()
		switch {
		case tok.Type == EOF:
			return nil, diag.Syntaxf(open.Span, "unterminated parameter list (missing ')')")
		case tok.Type != IDENT:
			return nil, diag.Syntaxf(tok.Span, "function parameters must be symbols, found %s", tok.describe())
		case seen[tok.Raw]:
			return nil, diag.Syntaxf(tok.Span, "duplicate parameter %q", tok.Raw)
		}
		seen[tok.Raw] = true
		p.advance()
		symbols = append(symbols, annotate(ast.NewSymbol(tok.Raw), tok.Span))
	}
	p.advance()
	params := annotate(ast.NewSymbolList(symbols), p.spanFrom(open))
	body, err := p.parseBlock(start, END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(END, "to close 'function'"); err != nil {
		return nil, err
	}
	return annotate(ast.NewFunction(params, body), p.spanFrom(start)), nil
}
