package parser

import (
	"errors"

	"toylang/interpreter-go/pkg/token"
)

var (
	ErrExpectedToken   = errors.New("expected token")
	ErrUnexpectedToken = errors.New("unexpected token")
)

// ParseError names the construct the parser wanted and the token it found.
type ParseError struct {
	Kind     error
	Expected string
	Found    token.Token
	Message  string
}

func (e *ParseError) Error() string {
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}
