package ast

// Shorthand constructors, mostly used by tests.

func Let(name, value string) *LetStatement {
	return NewLetStatement(name, value)
}

func Print(format string, args ...string) *PrintStatement {
	return NewPrintStatement(format, args)
}

func Prog(statements ...Statement) *Program {
	return NewProgram(statements)
}
