package ast

type NodeType string

const (
	NodeLetStatement   NodeType = "LetStatement"
	NodePrintStatement NodeType = "PrintStatement"
	NodeProgram        NodeType = "Program"
)

type Node interface {
	NodeType() NodeType
	// Offset is the rune index of the node's first token in the source.
	Offset() int
	isNode()
}

type nodeImpl struct {
	Type   NodeType
	offset int
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Offset() int        { return n.offset }
func (nodeImpl) isNode()              {}

func (n *nodeImpl) setOffset(offset int) { n.offset = offset }

// SetOffset records where a node starts in the source.
func SetOffset(node Node, offset int) {
	if node == nil {
		return
	}
	if setter, ok := node.(interface{ setOffset(int) }); ok {
		setter.setOffset(offset)
	}
}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// LetStatement binds a string literal to a name.
type LetStatement struct {
	nodeImpl
	statementMarker

	Name  string
	Value string
}

func NewLetStatement(name, value string) *LetStatement {
	return &LetStatement{nodeImpl: newNodeImpl(NodeLetStatement), Name: name, Value: value}
}

// PrintStatement writes Format with each {} replaced by the next argument's value.
type PrintStatement struct {
	nodeImpl
	statementMarker

	Format string
	Args   []string
}

func NewPrintStatement(format string, args []string) *PrintStatement {
	if args == nil {
		args = []string{}
	}
	return &PrintStatement{nodeImpl: newNodeImpl(NodePrintStatement), Format: format, Args: args}
}

// Program is the ordered statement list produced by a successful parse.
type Program struct {
	nodeImpl

	Statements []Statement
}

func NewProgram(statements []Statement) *Program {
	if statements == nil {
		statements = []Statement{}
	}
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Statements: statements}
}
