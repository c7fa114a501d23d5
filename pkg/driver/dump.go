package driver

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"toylang/interpreter-go/pkg/ast"
	"toylang/interpreter-go/pkg/token"
)

// DumpKind selects a diagnostic dump printed before a program runs.
type DumpKind string

const (
	DumpTokens DumpKind = "tokens"
	DumpAST    DumpKind = "ast"
)

// ParseDumpKinds validates dump names, dropping duplicates and keeping order.
func ParseDumpKinds(names []string) ([]DumpKind, error) {
	var out []DumpKind
	seen := make(map[DumpKind]struct{}, len(names))
	for _, name := range names {
		kind := DumpKind(strings.ToLower(strings.TrimSpace(name)))
		if kind == "" {
			continue
		}
		switch kind {
		case DumpTokens, DumpAST:
		default:
			return nil, fmt.Errorf("unknown dump %q (want tokens or ast)", name)
		}
		if _, ok := seen[kind]; ok {
			continue
		}
		seen[kind] = struct{}{}
		out = append(out, kind)
	}
	return out, nil
}

type tokenDump struct {
	Kind    string  `yaml:"kind"`
	Literal *string `yaml:"literal,omitempty"`
	Offset  int     `yaml:"offset"`
}

type programDump struct {
	Statements []statementDump `yaml:"statements"`
}

type statementDump struct {
	Let   *letDump   `yaml:"let,omitempty"`
	Print *printDump `yaml:"print,omitempty"`
}

type letDump struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type printDump struct {
	Format string   `yaml:"format"`
	Args   []string `yaml:"args,flow"`
}

// WriteTokens renders the token sequence as a YAML list.
func WriteTokens(w io.Writer, tokens []token.Token) error {
	out := make([]tokenDump, 0, len(tokens))
	for _, tok := range tokens {
		entry := tokenDump{Kind: string(tok.Kind), Offset: tok.Offset}
		if tok.Kind.HasLiteral() {
			literal := tok.Literal
			entry.Literal = &literal
		}
		out = append(out, entry)
	}
	return encodeYAML(w, map[string]any{"tokens": out})
}

// WriteProgram renders the parsed program as YAML.
func WriteProgram(w io.Writer, program *ast.Program) error {
	out := programDump{Statements: []statementDump{}}
	if program != nil {
		for _, stmt := range program.Statements {
			switch s := stmt.(type) {
			case *ast.LetStatement:
				out.Statements = append(out.Statements, statementDump{Let: &letDump{Name: s.Name, Value: s.Value}})
			case *ast.PrintStatement:
				args := append([]string{}, s.Args...)
				out.Statements = append(out.Statements, statementDump{Print: &printDump{Format: s.Format, Args: args}})
			default:
				return fmt.Errorf("dump: unsupported statement type %s", stmt.NodeType())
			}
		}
	}
	return encodeYAML(w, out)
}

func encodeYAML(w io.Writer, value any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("dump: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("dump: encoder close: %w", err)
	}
	return nil
}
