package cast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// dropped lists tree-sitter node types that carry no code. Preprocessor
// lines stand in for what a preprocessing pass would have consumed.
var dropped = map[string]bool{
	"comment":              true,
	"preproc_include":      true,
	"preproc_def":          true,
	"preproc_function_def": true,
	"preproc_call":         true,
}

var constantKinds = map[string]ConstantKind{
	"number_literal":      ConstantNumber,
	"char_literal":        ConstantChar,
	"string_literal":      ConstantString,
	"concatenated_string": ConstantString,
	"true":                ConstantBool,
	"false":               ConstantBool,
	"null":                ConstantNull,
}

type converter struct {
	src []byte
}

func (cv *converter) span(n *sitter.Node) Span {
	pos := n.StartPoint()
	return Span{
		Text: n.Content(cv.src),
		Pos:  Position{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1},
	}
}

func (cv *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(cv.src)
}

// namedChildren converts every named child of n, skipping dropped ones.
func (cv *converter) namedChildren(n *sitter.Node) []Node {
	var out []Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := cv.convert(n.NamedChild(i)); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// convert maps one tree-sitter node onto the AST model. It returns nil for
// nodes that carry no code.
func (cv *converter) convert(n *sitter.Node) Node {
	if n == nil || dropped[n.Type()] {
		return nil
	}

	switch typ := n.Type(); typ {
	case "function_definition":
		if fd := cv.funcDef(n); fd != nil {
			return fd
		}
	case "compound_statement":
		return cv.compound(n)
	case "expression_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if expr := cv.convert(n.NamedChild(i)); expr != nil {
				return expr
			}
		}
		return nil
	case "call_expression":
		call := &Call{Span: cv.span(n), Func: cv.convert(n.ChildByFieldName("function"))}
		if args := n.ChildByFieldName("arguments"); args != nil {
			call.Args = cv.namedChildren(args)
		}
		return call
	case "identifier":
		return &Ident{Span: cv.span(n), Name: cv.text(n)}
	case "pointer_expression", "unary_expression", "update_expression":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		return &UnaryOp{
			Span:    cv.span(n),
			Op:      cv.text(op),
			Operand: cv.convert(arg),
			Postfix: op != nil && arg != nil && op.StartByte() > arg.StartByte(),
		}
	case "binary_expression", "assignment_expression":
		return &BinaryOp{
			Span:  cv.span(n),
			Op:    cv.text(n.ChildByFieldName("operator")),
			Left:  cv.convert(n.ChildByFieldName("left")),
			Right: cv.convert(n.ChildByFieldName("right")),
		}
	default:
		if kind, ok := constantKinds[typ]; ok {
			return &Constant{Span: cv.span(n), Type: kind, Value: cv.text(n)}
		}
	}

	return &Unsupported{Span: cv.span(n), Type: n.Type(), Items: cv.namedChildren(n)}
}

func (cv *converter) compound(n *sitter.Node) *Compound {
	return &Compound{Span: cv.span(n), Items: cv.namedChildren(n)}
}

// funcDef converts a function_definition. It returns nil when no function
// declarator can be found (e.g. K&R style definitions).
func (cv *converter) funcDef(n *sitter.Node) *FuncDef {
	declNode := findFunctionDeclarator(n.ChildByFieldName("declarator"))
	if declNode == nil {
		return nil
	}

	decl := &FuncDecl{
		Span: cv.span(declNode),
		Name: declaratorName(declNode.ChildByFieldName("declarator"), cv.src),
	}
	if params := declNode.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p == nil || p.Type() != "parameter_declaration" {
				continue
			}
			name := declaratorName(p.ChildByFieldName("declarator"), cv.src)
			if name == "" {
				continue
			}
			decl.Params = append(decl.Params, Param{
				Name: name,
				Type: cv.text(p.ChildByFieldName("type")),
			})
		}
	}

	fd := &FuncDef{Span: cv.span(n), Decl: decl}
	if body := n.ChildByFieldName("body"); body != nil {
		fd.Body = cv.compound(body)
	}
	return fd
}

// findFunctionDeclarator unwraps pointer, parenthesized and attributed
// declarators until it reaches a function_declarator.
func findFunctionDeclarator(n *sitter.Node) *sitter.Node {
	for n != nil {
		if n.Type() == "function_declarator" {
			return n
		}
		next := n.ChildByFieldName("declarator")
		if next == nil && n.NamedChildCount() > 0 {
			next = n.NamedChild(0)
		}
		n = next
	}
	return nil
}

// declaratorName digs through nested declarators to the declared identifier.
// Abstract declarators yield "".
func declaratorName(n *sitter.Node, src []byte) string {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return n.Content(src)
		}
		next := n.ChildByFieldName("declarator")
		if next == nil && n.Type() == "parenthesized_declarator" && n.NamedChildCount() > 0 {
			next = n.NamedChild(0)
		}
		n = next
	}
	return ""
}
