package driver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"toylang/interpreter-go/pkg/ast"
	"toylang/interpreter-go/pkg/interpreter"
	"toylang/interpreter-go/pkg/lexer"
	"toylang/interpreter-go/pkg/parser"
	"toylang/interpreter-go/pkg/runtime"
	"toylang/interpreter-go/pkg/token"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageLex     Stage = "Lex"
	StageParse   Stage = "Parse"
	StageRuntime Stage = "Runtime"
)

// SourceLocation is a 1-based line and column (counted in runes).
type SourceLocation struct {
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	if l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Locate converts a rune offset into a line and column.
func Locate(source string, offset int) SourceLocation {
	loc := SourceLocation{Line: 1, Column: 1}
	idx := 0
	for _, r := range source {
		if idx >= offset {
			break
		}
		if r == '\n' {
			loc.Line++
			loc.Column = 1
		} else {
			loc.Column++
		}
		idx++
	}
	return loc
}

// StageError labels the first failure of a run with the stage that produced it.
type StageError struct {
	Stage    Stage
	Err      error
	Location SourceLocation
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options configures a pipeline run.
type Options struct {
	// Env seeds the run's bindings. A fresh environment is used when nil.
	Env *runtime.Environment
	// Dump lists diagnostic dumps written to DumpOutput before execution.
	Dump       []DumpKind
	DumpOutput io.Writer
	Logger     *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Tokenize runs the lex stage.
func Tokenize(source string) ([]token.Token, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, stageError(StageLex, source, err)
	}
	return tokens, nil
}

// Compile runs the lex and parse stages.
func Compile(source string) ([]token.Token, *ast.Program, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, nil, err
	}
	program, err := parser.Parse(tokens)
	if err != nil {
		return tokens, nil, stageError(StageParse, source, err)
	}
	return tokens, program, nil
}

// Run lexes, parses and executes source, writing printed lines to out. Each
// stage completes before the next starts; the first failure is returned as a
// *StageError. The token dump is written as soon as lexing succeeds and the
// AST dump as soon as parsing succeeds.
func Run(source string, out io.Writer, opts Options) error {
	log := opts.logger()

	started := time.Now()
	tokens, err := Tokenize(source)
	if err != nil {
		log.Debug("lex failed", "error", err)
		return err
	}
	log.Debug("lexed", "tokens", len(tokens), "elapsed", time.Since(started))
	if opts.dumps(DumpTokens) {
		if err := WriteTokens(opts.DumpOutput, tokens); err != nil {
			return err
		}
	}

	started = time.Now()
	program, err := parser.Parse(tokens)
	if err != nil {
		log.Debug("parse failed", "error", err)
		return stageError(StageParse, source, err)
	}
	log.Debug("parsed", "statements", len(program.Statements), "elapsed", time.Since(started))
	if opts.dumps(DumpAST) {
		if err := WriteProgram(opts.DumpOutput, program); err != nil {
			return err
		}
	}

	env := opts.Env
	if env == nil {
		env = runtime.NewEnvironment()
	}
	started = time.Now()
	if err := interpreter.New(env, out).Run(program); err != nil {
		log.Debug("run failed", "error", err)
		return stageError(StageRuntime, source, err)
	}
	log.Debug("executed", "bindings", env.Len(), "elapsed", time.Since(started))
	return nil
}

// dumps reports whether kind was requested and there is somewhere to write it.
func (o Options) dumps(kind DumpKind) bool {
	if o.DumpOutput == nil {
		return false
	}
	for _, k := range o.Dump {
		if k == kind {
			return true
		}
	}
	return false
}

func stageError(stage Stage, source string, err error) *StageError {
	se := &StageError{Stage: stage, Err: err}
	var (
		lexErr   *lexer.LexError
		parseErr *parser.ParseError
		rtErr    *interpreter.RuntimeError
	)
	switch {
	case errors.As(err, &lexErr):
		se.Location = Locate(source, lexErr.Offset)
	case errors.As(err, &parseErr):
		se.Location = Locate(source, parseErr.Found.Offset)
	case errors.As(err, &rtErr):
		se.Location = Locate(source, rtErr.Offset)
	}
	return se
}
