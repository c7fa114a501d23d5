package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"toylang/interpreter-go/pkg/token"
)

// Lexer walks the source one rune at a time with a single rune of lookahead.
type Lexer struct {
	src []rune
	pos int
}

// New constructs a lexer over the given source text.
func New(src string) *Lexer {
	return &Lexer{src: []rune(src)}
}

// Tokenize is a shorthand for New(src).Tokenize().
func Tokenize(src string) ([]token.Token, error) {
	return New(src).Tokenize()
}

// Tokenize consumes the whole source. The result always ends with exactly one
// Eof token; on error no tokens are returned.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var tokens []token.Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == token.Eof {
			return tokens, nil
		}
	}
}

func (l *Lexer) peek() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) bump() (rune, bool) {
	ch, ok := l.peek()
	if ok {
		l.pos++
	}
	return ch, ok
}

func (l *Lexer) skipWhitespace() {
	for {
		ch, ok := l.peek()
		if !ok || !unicode.IsSpace(ch) {
			return
		}
		l.pos++
	}
}

func (l *Lexer) next() (token.Token, error) {
	l.skipWhitespace()
	start := l.pos
	ch, ok := l.bump()
	if !ok {
		return token.New(token.Eof, start), nil
	}
	if kind, ok := token.LookupPunctuation(ch); ok {
		return token.New(kind, start), nil
	}
	switch {
	case ch == '"':
		literal, err := l.readString(start)
		if err != nil {
			return token.Token{}, err
		}
		return token.NewStr(literal, start), nil
	case isIdentStart(ch):
		word := l.readIdent(ch)
		if kind := token.LookupIdent(word); kind != token.Ident {
			return token.New(kind, start), nil
		}
		return token.NewIdent(word, start), nil
	default:
		return token.Token{}, &LexError{
			Kind:    ErrUnexpectedChar,
			Char:    ch,
			Offset:  start,
			Message: fmt.Sprintf("Unexpected char: '%c' at %d", ch, start),
		}
	}
}

// readString expects the opening quote to be consumed already.
func (l *Lexer) readString(start int) (string, error) {
	var b strings.Builder
	for {
		ch, ok := l.bump()
		if !ok {
			return "", &LexError{
				Kind:    ErrUnterminatedString,
				Char:    '"',
				Offset:  start,
				Message: "Unterminated string",
			}
		}
		switch ch {
		case '"':
			return b.String(), nil
		case '\\':
			escapeAt := l.pos - 1
			esc, ok := l.bump()
			if !ok {
				return "", &LexError{
					Kind:    ErrUnterminatedString,
					Char:    '\\',
					Offset:  escapeAt,
					Message: "Unfinished escape in string",
				}
			}
			resolved, ok := resolveEscape(esc)
			if !ok {
				return "", &LexError{
					Kind:    ErrUnsupportedEscape,
					Char:    esc,
					Offset:  escapeAt,
					Message: fmt.Sprintf("Unsupported escape: \\%c", esc),
				}
			}
			b.WriteRune(resolved)
		default:
			b.WriteRune(ch)
		}
	}
}

func resolveEscape(esc rune) (rune, bool) {
	switch esc {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case '"':
		return '"', true
	case '\\':
		return '\\', true
	default:
		return 0, false
	}
}

func (l *Lexer) readIdent(first rune) string {
	var b strings.Builder
	b.WriteRune(first)
	for {
		ch, ok := l.peek()
		if !ok || !isIdentPart(ch) {
			return b.String()
		}
		b.WriteRune(ch)
		l.pos++
	}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsNumber(ch) || ch == '_'
}
