// Package cast defines the subset of the C abstract syntax tree that the
// flowchart generator understands, and converts tree-sitter parse trees into it.
//
// The model is a closed sum type: every value implementing Node is one of the
// structs declared in this file. Constructs outside the modelled subset are
// represented by Unsupported, which keeps its converted children so that a
// generic traversal can still reach nested supported constructs.
package cast

// Kind identifies the concrete variant of a Node.
type Kind string

const (
	KindTranslationUnit Kind = "translation_unit"
	KindFuncDef         Kind = "func_def"
	KindFuncDecl        Kind = "func_decl"
	KindCompound        Kind = "compound"
	KindCall            Kind = "call"
	KindIdent           Kind = "ident"
	KindConstant        Kind = "constant"
	KindUnaryOp         Kind = "unary_op"
	KindBinaryOp        Kind = "binary_op"
	KindUnsupported     Kind = "unsupported"
)

// ConstantKind classifies literal constants.
type ConstantKind string

const (
	ConstantNumber ConstantKind = "number"
	ConstantChar   ConstantKind = "char"
	ConstantString ConstantKind = "string"
	ConstantBool   ConstantKind = "bool"
	ConstantNull   ConstantKind = "null"
)

// Position is a 1-based source location.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Node is implemented by every AST variant in this package.
type Node interface {
	Kind() Kind
	// Children returns the direct child nodes in source order.
	Children() []Node
	// Source returns the source text of the construct.
	Source() string
	Position() Position
	node()
}

// Span carries the source text and location shared by all variants.
type Span struct {
	Text string
	Pos  Position
}

func (s Span) Source() string     { return s.Text }
func (s Span) Position() Position { return s.Pos }
func (Span) node()                {}

// TranslationUnit is the root of a parsed file.
type TranslationUnit struct {
	Span
	Items []Node
}

// FuncDef is a function definition: signature plus body.
type FuncDef struct {
	Span
	Decl *FuncDecl
	Body *Compound
}

// FuncDecl is the signature of a function definition.
type FuncDecl struct {
	Span
	Name   string
	Params []Param
}

// Param is a named function parameter.
type Param struct {
	Name string
	Type string
}

// Compound is a brace-enclosed block of statements.
type Compound struct {
	Span
	Items []Node
}

// Call is a function call expression.
type Call struct {
	Span
	Func Node
	Args []Node
}

// Ident is an identifier reference.
type Ident struct {
	Span
	Name string
}

// Constant is a literal. Value is the literal as written, so string
// constants keep their quotes and escape sequences.
type Constant struct {
	Span
	Type  ConstantKind
	Value string
}

// UnaryOp is a prefix or postfix operator applied to one operand.
type UnaryOp struct {
	Span
	Op      string
	Operand Node
	Postfix bool
}

// BinaryOp is a binary or assignment operator.
type BinaryOp struct {
	Span
	Op    string
	Left  Node
	Right Node
}

// Unsupported is any construct outside the modelled subset.
type Unsupported struct {
	Span
	Type  string
	Items []Node
}

func (*TranslationUnit) Kind() Kind { return KindTranslationUnit }
func (*FuncDef) Kind() Kind         { return KindFuncDef }
func (*FuncDecl) Kind() Kind        { return KindFuncDecl }
func (*Compound) Kind() Kind        { return KindCompound }
func (*Call) Kind() Kind            { return KindCall }
func (*Ident) Kind() Kind           { return KindIdent }
func (*Constant) Kind() Kind        { return KindConstant }
func (*UnaryOp) Kind() Kind         { return KindUnaryOp }
func (*BinaryOp) Kind() Kind        { return KindBinaryOp }
func (*Unsupported) Kind() Kind     { return KindUnsupported }

func (n *TranslationUnit) Children() []Node { return n.Items }

func (n *FuncDef) Children() []Node {
	var out []Node
	if n.Decl != nil {
		out = append(out, n.Decl)
	}
	if n.Body != nil {
		out = append(out, n.Body)
	}
	return out
}

func (*FuncDecl) Children() []Node   { return nil }
func (n *Compound) Children() []Node { return n.Items }

func (n *Call) Children() []Node {
	out := make([]Node, 0, len(n.Args)+1)
	if n.Func != nil {
		out = append(out, n.Func)
	}
	return append(out, n.Args...)
}

func (*Ident) Children() []Node    { return nil }
func (*Constant) Children() []Node { return nil }

func (n *UnaryOp) Children() []Node {
	if n.Operand == nil {
		return nil
	}
	return []Node{n.Operand}
}

func (n *BinaryOp) Children() []Node {
	var out []Node
	if n.Left != nil {
		out = append(out, n.Left)
	}
	if n.Right != nil {
		out = append(out, n.Right)
	}
	return out
}

func (n *Unsupported) Children() []Node { return n.Items }

// Name returns the callee name: the identifier when the callee is a plain
// name, otherwise the callee's source text (e.g. "ops->run").
func (n *Call) Name() string {
	if id, ok := n.Func.(*Ident); ok {
		return id.Name
	}
	if n.Func == nil {
		return ""
	}
	return n.Func.Source()
}

// ParamNames returns the parameter names in declaration order.
func (n *FuncDecl) ParamNames() []string {
	names := make([]string, 0, len(n.Params))
	for _, p := range n.Params {
		names = append(names, p.Name)
	}
	return names
}

// Name returns the function's name, or "" when the signature is missing.
func (n *FuncDef) Name() string {
	if n.Decl == nil {
		return ""
	}
	return n.Decl.Name
}

// Walk calls fn for n and then, if fn returns true, for each child in
// source order.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children() {
		Walk(child, fn)
	}
}

// Functions returns every function definition reachable from root, in source order.
func Functions(root Node) []*FuncDef {
	var defs []*FuncDef
	Walk(root, func(n Node) bool {
		if fd, ok := n.(*FuncDef); ok {
			defs = append(defs, fd)
			return false
		}
		return true
	})
	return defs
}
