package parser

import (
	"fmt"

	"toylang/interpreter-go/pkg/ast"
	"toylang/interpreter-go/pkg/token"
)

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch tok := p.peek(); tok.Kind {
	case token.Let:
		return p.parseLet()
	case token.Print:
		return p.parsePrint()
	default:
		return nil, &ParseError{
			Kind:     ErrUnexpectedToken,
			Expected: "statement",
			Found:    tok,
			Message:  fmt.Sprintf("Unexpected token in statement: %s", tok),
		}
	}
}

// let_stmt := "let" IDENT "=" STRING ";"
func (p *Parser) parseLet() (ast.Statement, error) {
	kw, err := p.expect(token.Let)
	if err != nil {
		return nil, err
	}
	name, err := p.expectLiteral(token.Ident, "identifier after let")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Equal); err != nil {
		return nil, err
	}
	value, err := p.expectLiteral(token.Str, "string literal after '='")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	stmt := ast.NewLetStatement(name.Literal, value.Literal)
	ast.SetOffset(stmt, kw.Offset)
	return stmt, nil
}

// print_stmt := "print" "(" STRING ("," IDENT)* ")" ";"
func (p *Parser) parsePrint() (ast.Statement, error) {
	kw, err := p.expect(token.Print)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	format, err := p.expectLiteral(token.Str, "string literal in print(...)")
	if err != nil {
		return nil, err
	}
	args := make([]string, 0)
	for p.peek().Kind == token.Comma {
		if _, err := p.expect(token.Comma); err != nil {
			return nil, err
		}
		arg, err := p.expectLiteral(token.Ident, "identifier as print arg")
		if err != nil {
			return nil, err
		}
		args = append(args, arg.Literal)
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	stmt := ast.NewPrintStatement(format.Literal, args)
	ast.SetOffset(stmt, kw.Offset)
	return stmt, nil
}
