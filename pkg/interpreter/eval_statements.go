package interpreter

import (
	"fmt"
	"io"
	"strings"

	"toylang/interpreter-go/pkg/ast"
)

const placeholder = "{}"

func (i *Interpreter) evaluatePrint(stmt *ast.PrintStatement) error {
	line, err := i.render(stmt.Format, stmt.Args)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(i.out, line+"\n"); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// render substitutes each {} in format, left to right, with the value of the
// next argument. Arguments are looked up when the statement runs.
func (i *Interpreter) render(format string, args []string) (string, error) {
	var b strings.Builder
	rest := format
	next := 0
	for {
		idx := strings.Index(rest, placeholder)
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx])
		if next >= len(args) {
			return "", &RuntimeError{
				Kind:    ErrMissingArguments,
				Message: "print: missing arguments for placeholders",
			}
		}
		name := args[next]
		next++
		value, ok := i.env.Get(name)
		if !ok {
			return "", &RuntimeError{
				Kind:    ErrUndefinedVariable,
				Name:    name,
				Message: fmt.Sprintf("Undefined variable: %s", name),
			}
		}
		b.WriteString(value)
		rest = rest[idx+len(placeholder):]
	}
	if next < len(args) {
		return "", &RuntimeError{
			Kind:    ErrTooManyArguments,
			Message: "print: too many arguments for placeholders",
		}
	}
	return b.String(), nil
}
