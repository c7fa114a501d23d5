package interpreter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"toylang/interpreter-go/pkg/ast"
	"toylang/interpreter-go/pkg/lexer"
	"toylang/interpreter-go/pkg/parser"
	"toylang/interpreter-go/pkg/runtime"
)

func runSource(t *testing.T, src string) (*Interpreter, string, error) {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	program, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var out bytes.Buffer
	interp := New(runtime.NewEnvironment(), &out)
	err = interp.Run(program)
	return interp, out.String(), err
}

func TestLetBindsEscapedValue(t *testing.T) {
	interp, out, err := runSource(t, `let msg = "line\tone\nline \"two\" \\";`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "" {
		t.Fatalf("let should not print, got %q", out)
	}
	got, ok := interp.Environment().Get("msg")
	if !ok {
		t.Fatalf("expected msg binding")
	}
	if want := "line\tone\nline \"two\" \\"; got != want {
		t.Fatalf("msg = %q, want %q", got, want)
	}
}

func TestPrintPlain(t *testing.T) {
	_, out, err := runSource(t, `print("hi");`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "hi\n" {
		t.Fatalf("output = %q, want %q", out, "hi\n")
	}
}

func TestPrintSubstitutesPlaceholders(t *testing.T) {
	_, out, err := runSource(t, `let name = "Bob"; print("Hello, {}!", name);`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "Hello, Bob!\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestPrintUsesLatestBinding(t *testing.T) {
	_, out, err := runSource(t, `
let who = "first";
print("{}", who);
let who = "second";
print("{}", who);
`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "first\nsecond\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestPrintDoesNotRescanValues(t *testing.T) {
	_, out, err := runSource(t, `let a = "{}"; let b = "B"; print("{}-{}", a, b);`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "{}-B\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestPrintAdjacentAndRepeatedArgs(t *testing.T) {
	_, out, err := runSource(t, `let x = "ab"; print("{}{}[{}]", x, x, x);`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "abab[ab]\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestRuntimeErrors(t *testing.T) {
	cases := []struct {
		name      string
		src       string
		kind      error
		message   string
		statement int
		output    string
	}{
		{"missing argument", `let a = "1"; print("{} and {}", a);`, ErrMissingArguments, "print: missing arguments for placeholders", 1, ""},
		{"too many arguments", `let a = "1"; let b = "2"; print("{}", a, b);`, ErrTooManyArguments, "print: too many arguments for placeholders", 2, ""},
		{"args without placeholders", `let a = "1"; print("plain", a);`, ErrTooManyArguments, "print: too many arguments for placeholders", 1, ""},
		{"undefined variable", `print("{}", missing);`, ErrUndefinedVariable, "Undefined variable: missing", 0, ""},
		{"forward reference", `print("{}", later); let later = "x";`, ErrUndefinedVariable, "Undefined variable: later", 0, ""},
		{"stops after earlier output", `print("one"); print("{}", nope); print("three");`, ErrUndefinedVariable, "Undefined variable: nope", 1, "one\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, out, err := runSource(t, tc.src)
			if err == nil {
				t.Fatalf("expected runtime error, output %q", out)
			}
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			var rtErr *RuntimeError
			if !errors.As(err, &rtErr) {
				t.Fatalf("expected *RuntimeError, got %T", err)
			}
			if rtErr.Message != tc.message {
				t.Fatalf("message = %q, want %q", rtErr.Message, tc.message)
			}
			if rtErr.Statement != tc.statement {
				t.Fatalf("statement = %d, want %d", rtErr.Statement, tc.statement)
			}
			if out != tc.output {
				t.Fatalf("output = %q, want %q", out, tc.output)
			}
		})
	}
}

func TestUndefinedVariableReportsName(t *testing.T) {
	_, _, err := runSource(t, `let a = "x"; print("{} {}", a, ghost);`)
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
	if rtErr.Name != "ghost" {
		t.Fatalf("name = %q, want ghost", rtErr.Name)
	}
	if rtErr.Offset != 13 {
		t.Fatalf("offset = %d, want 13", rtErr.Offset)
	}
}

func TestRunWithInjectedEnvironment(t *testing.T) {
	env := runtime.NewEnvironment()
	env.Define("preset", "from host")
	var out bytes.Buffer
	interp := New(env, &out)
	if err := interp.Run(ast.Prog(ast.Print("{}", "preset"))); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.String() != "from host\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunNilProgram(t *testing.T) {
	if err := New(nil, nil).Run(nil); err != nil {
		t.Fatalf("Run(nil) returned error: %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("sink closed")
}

func TestPrintWriteFailure(t *testing.T) {
	err := New(nil, failingWriter{}).Run(ast.Prog(ast.Print("hi")))
	if err == nil || !strings.Contains(err.Error(), "write output: sink closed") {
		t.Fatalf("expected write failure, got %v", err)
	}
}

type lineCounter struct {
	writes []string
}

func (w *lineCounter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func TestPrintWritesEachLineOnce(t *testing.T) {
	w := &lineCounter{}
	program := ast.Prog(
		ast.Let("a", "x"),
		ast.Print("a={} b", "a"),
		ast.Print("done"),
	)
	if err := New(nil, w).Run(program); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := []string{"a=x b\n", "done\n"}
	if len(w.writes) != len(want) {
		t.Fatalf("writes = %q, want %q", w.writes, want)
	}
	for i := range want {
		if w.writes[i] != want[i] {
			t.Fatalf("write %d = %q, want %q", i, w.writes[i], want[i])
		}
	}
}
