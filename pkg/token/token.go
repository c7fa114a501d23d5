package token

import "strconv"

type Kind string

const (
	Let       Kind = "Let"
	Print     Kind = "Print"
	LParen    Kind = "LParen"
	RParen    Kind = "RParen"
	LBrace    Kind = "LBrace"
	RBrace    Kind = "RBrace"
	Comma     Kind = "Comma"
	Semicolon Kind = "Semicolon"
	Equal     Kind = "Equal"
	Ident     Kind = "Ident"
	Str       Kind = "Str"
	Eof       Kind = "Eof"
)

var keywords = map[string]Kind{
	"let":   Let,
	"print": Print,
}

var punctuation = map[rune]Kind{
	'(': LParen,
	')': RParen,
	'{': LBrace,
	'}': RBrace,
	',': Comma,
	';': Semicolon,
	'=': Equal,
}

// Token is a single lexical unit. Literal is only meaningful for Ident and Str.
// Offset is the rune index of the token's first character in the source.
type Token struct {
	Kind    Kind
	Literal string
	Offset  int
}

// New builds a token without a literal.
func New(kind Kind, offset int) Token {
	return Token{Kind: kind, Offset: offset}
}

// NewIdent builds an identifier token.
func NewIdent(name string, offset int) Token {
	return Token{Kind: Ident, Literal: name, Offset: offset}
}

// NewStr builds a string literal token holding the unescaped text.
func NewStr(literal string, offset int) Token {
	return Token{Kind: Str, Literal: literal, Offset: offset}
}

// LookupIdent classifies a word as a keyword or an identifier.
func LookupIdent(word string) Kind {
	if kind, ok := keywords[word]; ok {
		return kind
	}
	return Ident
}

// LookupPunctuation reports the token kind for a single-character punctuator.
func LookupPunctuation(ch rune) (Kind, bool) {
	kind, ok := punctuation[ch]
	return kind, ok
}

// HasLiteral reports whether tokens of this kind carry a payload.
func (k Kind) HasLiteral() bool {
	return k == Ident || k == Str
}

// Same compares kind and payload, ignoring position.
func (t Token) Same(other Token) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind.HasLiteral() {
		return t.Literal == other.Literal
	}
	return true
}

func (t Token) String() string {
	if t.Kind.HasLiteral() {
		return string(t.Kind) + "(" + strconv.Quote(t.Literal) + ")"
	}
	return string(t.Kind)
}
