package interpreter

import "errors"

var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrMissingArguments  = errors.New("missing arguments for placeholders")
	ErrTooManyArguments  = errors.New("too many arguments for placeholders")
)

// RuntimeError reports the statement that stopped a run. Name is set for
// undefined-variable errors.
type RuntimeError struct {
	Kind      error
	Name      string
	Statement int
	Offset    int
	Message   string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

func (e *RuntimeError) Unwrap() error {
	return e.Kind
}
