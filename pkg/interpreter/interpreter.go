package interpreter

import (
	"fmt"
	"io"

	"toylang/interpreter-go/pkg/ast"
	"toylang/interpreter-go/pkg/runtime"
)

// Interpreter walks a parsed program, storing bindings in env and writing one
// line per print statement to out.
type Interpreter struct {
	env *runtime.Environment
	out io.Writer
}

// New returns an interpreter bound to the given environment and output sink.
// A nil environment is replaced with an empty one.
func New(env *runtime.Environment, out io.Writer) *Interpreter {
	if env == nil {
		env = runtime.NewEnvironment()
	}
	if out == nil {
		out = io.Discard
	}
	return &Interpreter{env: env, out: out}
}

// Environment returns the environment the interpreter writes bindings to.
func (i *Interpreter) Environment() *runtime.Environment {
	return i.env
}

// Run executes statements in order and stops at the first failure. Lines
// printed before the failure have already been written.
func (i *Interpreter) Run(program *ast.Program) error {
	if program == nil {
		return nil
	}
	for idx, stmt := range program.Statements {
		if err := i.evaluateStatement(stmt); err != nil {
			if rtErr, ok := err.(*RuntimeError); ok {
				rtErr.Statement = idx
				rtErr.Offset = stmt.Offset()
			}
			return err
		}
	}
	return nil
}

func (i *Interpreter) evaluateStatement(node ast.Statement) error {
	switch n := node.(type) {
	case *ast.LetStatement:
		i.env.Define(n.Name, n.Value)
		return nil
	case *ast.PrintStatement:
		return i.evaluatePrint(n)
	default:
		return fmt.Errorf("unsupported statement type: %s", node.NodeType())
	}
}
