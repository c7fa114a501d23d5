package lexer

import "errors"

var (
	ErrUnexpectedChar     = errors.New("unexpected character")
	ErrUnterminatedString = errors.New("unterminated string literal")
	ErrUnsupportedEscape  = errors.New("unsupported escape sequence")
)

// LexError reports the first character the lexer could not accept.
// Offset is a rune index into the source.
type LexError struct {
	Kind    error
	Char    rune
	Offset  int
	Message string
}

func (e *LexError) Error() string {
	return e.Message
}

func (e *LexError) Unwrap() error {
	return e.Kind
}
