package parser

import (
	"fmt"

	"toylang/interpreter-go/pkg/ast"
	"toylang/interpreter-go/pkg/token"
)

// Parser is a recursive-descent parser with one token of lookahead. It owns
// its token slice and advances a single index through it.
type Parser struct {
	tokens []token.Token
	pos    int
}

// New constructs a parser over a token sequence produced by the lexer.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse is a shorthand for New(tokens).Parse().
func Parse(tokens []token.Token) (*ast.Program, error) {
	return New(tokens).Parse()
}

// Parse reads statements until RBrace or Eof. Any error aborts the whole parse.
func (p *Parser) Parse() (*ast.Program, error) {
	var statements []ast.Statement
	for !p.atStop() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return ast.NewProgram(statements), nil
}

func (p *Parser) atStop() bool {
	switch p.peek().Kind {
	case token.RBrace, token.Eof:
		return true
	default:
		return false
	}
}

// peek returns Eof once the cursor runs past the end of the slice.
func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		offset := 0
		if n := len(p.tokens); n > 0 {
			offset = p.tokens[n-1].Offset
		}
		return token.New(token.Eof, offset)
	}
	return p.tokens[p.pos]
}

func (p *Parser) bump() token.Token {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	want := token.Token{Kind: kind}
	tok := p.bump()
	if tok.Same(want) {
		return tok, nil
	}
	return tok, &ParseError{
		Kind:     ErrExpectedToken,
		Expected: want.String(),
		Found:    tok,
		Message:  fmt.Sprintf("Expected %s, found %s", want, tok),
	}
}

func (p *Parser) expectLiteral(kind token.Kind, what string) (token.Token, error) {
	tok := p.bump()
	if tok.Kind == kind {
		return tok, nil
	}
	return tok, &ParseError{
		Kind:     ErrExpectedToken,
		Expected: string(kind),
		Found:    tok,
		Message:  fmt.Sprintf("Expected %s, got %s", what, tok),
	}
}
