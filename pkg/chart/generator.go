// Package chart turns a C abstract syntax tree into a flowchart description.
//
// A Generator walks the tree in source order. Statement-like constructs emit
// nodes as a side effect; expression-like constructs return inline text to
// their parent, which may promote it to a node of its own. Consecutive
// nodes are linked by connections that are written at the end of each
// function's subgraph.
//
// Example output for `int main() { printf("Hello\n"); }`:
//
//	flowchart TB
//	    subgraph SG0[" "]
//	        direction TB
//	        n1_1["main()"]
//	        n1_2[/"Output: Hello"/]
//	        n1_1 --> n1_2
//	    end
package chart

import (
	"context"
	"fmt"
	"strings"

	"github.com/l3aro/cflowchart/pkg/cast"
)

const (
	subgraphPlaceholder = " "
	outputPrefix        = "Output: "
	inputPrefix         = "Input: "
)

// Logger receives debug messages about skipped constructs.
type Logger interface {
	Debug(msg string, args ...interface{})
}

// Options configures a Generator.
type Options struct {
	// OutputRoutines are callee names rendered as output nodes.
	OutputRoutines []string
	// InputRoutines are callee names rendered as input nodes.
	InputRoutines []string
	// Function restricts rendering to the named function. Empty renders all.
	Function string
	// Strict makes unsupported constructs inside a function an error
	// instead of a silent traversal.
	Strict bool
	// Logger is optional.
	Logger Logger
}

// DefaultOptions returns options recognising printf/puts and scanf.
func DefaultOptions() Options {
	return Options{
		OutputRoutines: []string{"printf", "puts"},
		InputRoutines:  []string{"scanf"},
	}
}

// State is the mutable state of one traversal. A fresh State is created for
// every Generate call.
type State struct {
	Layout  *Layout
	Tracker *Tracker

	doc     Document
	current int // index into doc.Subgraphs, -1 outside a function
}

// NewState returns a State in its initial state.
func NewState() *State {
	st := &State{Layout: NewLayout(), Tracker: &Tracker{}}
	st.Reset()
	return st
}

// Reset restores the initial state.
func (st *State) Reset() {
	st.Layout.Reset()
	st.Tracker.Reset()
	st.doc = Document{}
	st.current = -1
}

func (st *State) inFunction() bool { return st.current >= 0 }

func (st *State) allocateNode(label string, shape Shape) string {
	id := st.Layout.AllocateNode(label, shape)
	if st.inFunction() {
		sg := &st.doc.Subgraphs[st.current]
		sg.Nodes = append(sg.Nodes, Node{ID: id, Label: label, Shape: shape})
	}
	return id
}

// Generator renders function definitions as flowcharts. A Generator is not
// safe for concurrent use.
type Generator struct {
	opts    Options
	outputs map[string]bool
	inputs  map[string]bool
	last    Document
}

// New creates a Generator. Empty routine lists fall back to the defaults.
func New(opts Options) *Generator {
	defaults := DefaultOptions()
	if len(opts.OutputRoutines) == 0 {
		opts.OutputRoutines = defaults.OutputRoutines
	}
	if len(opts.InputRoutines) == 0 {
		opts.InputRoutines = defaults.InputRoutines
	}
	return &Generator{
		opts:    opts,
		outputs: toSet(opts.OutputRoutines),
		inputs:  toSet(opts.InputRoutines),
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Reset discards the document kept from the previous Generate call.
func (g *Generator) Reset() {
	g.last = Document{}
}

// Document returns the structured result of the last successful Generate call.
func (g *Generator) Document() Document {
	return g.last
}

// Generate renders every function definition reachable from root and
// returns the chart text. On error nothing is returned.
func (g *Generator) Generate(root cast.Node) (string, error) {
	g.Reset()
	st := NewState()

	if _, _, err := g.visit(st, root); err != nil {
		return "", err
	}
	if g.opts.Function != "" && len(st.doc.Subgraphs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrFunctionNotFound, g.opts.Function)
	}

	g.last = st.doc
	return Render(st.Layout.Lines()), nil
}

// GenerateChart parses C source and renders it with the given options.
func GenerateChart(ctx context.Context, src []byte, filename string, opts Options) (string, error) {
	unit, err := cast.Parse(ctx, src, filename)
	if err != nil {
		return "", err
	}
	return New(opts).Generate(unit)
}

// visit dispatches on the node variant. The string result is the inline
// text of expression-like constructs; ok reports whether there is one.
func (g *Generator) visit(st *State, n cast.Node) (text string, ok bool, err error) {
	switch n := n.(type) {
	case nil:
		return "", false, nil
	case *cast.FuncDef:
		return "", false, g.visitFuncDef(st, n)
	case *cast.FuncDecl:
		g.visitFuncDecl(st, n)
		return "", false, nil
	case *cast.Compound:
		defer st.Layout.Indent()()
		return "", false, g.visitCompound(st, n)
	case *cast.Call:
		return g.visitCall(st, n)
	case *cast.Ident:
		return n.Name, true, nil
	case *cast.Constant:
		return n.Value, true, nil
	case *cast.UnaryOp:
		return g.visitUnary(st, n)
	case *cast.BinaryOp:
		return g.visitBinary(st, n)
	case *cast.Unsupported:
		if st.inFunction() {
			if g.opts.Strict {
				return "", false, &UnsupportedError{Type: n.Type, Pos: n.Position()}
			}
			g.debug("skipping unsupported construct", "type", n.Type, "line", n.Position().Line)
		}
		return "", false, g.visitChildren(st, n)
	default:
		return "", false, g.visitChildren(st, n)
	}
}

func (g *Generator) visitChildren(st *State, n cast.Node) error {
	for _, child := range n.Children() {
		if _, _, err := g.visit(st, child); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) visitFuncDef(st *State, n *cast.FuncDef) error {
	if g.opts.Function != "" && n.Name() != g.opts.Function {
		return nil
	}
	if st.inFunction() {
		if g.opts.Strict {
			return &UnsupportedError{Type: "nested function definition", Pos: n.Position()}
		}
		g.debug("skipping nested function definition", "name", n.Name(), "line", n.Position().Line)
		return nil
	}

	id := st.Layout.AllocateSubgraph(subgraphPlaceholder, Box)
	st.Layout.EnterSubgraph()
	st.doc.Subgraphs = append(st.doc.Subgraphs, Subgraph{ID: id, Label: subgraphPlaceholder, Function: n.Name()})
	st.current = len(st.doc.Subgraphs) - 1

	if err := g.funcBody(st, n); err != nil {
		return err
	}

	st.Layout.EmitRaw("end")
	st.doc.Subgraphs[st.current].Edges = st.Tracker.Connections()
	st.Tracker.Reset()
	st.current = -1
	return nil
}

func (g *Generator) funcBody(st *State, n *cast.FuncDef) error {
	defer st.Layout.Indent()()

	st.Layout.EmitRaw("direction TB")
	if n.Decl != nil {
		g.visitFuncDecl(st, n.Decl)
	}
	if n.Body != nil {
		if err := g.visitCompound(st, n.Body); err != nil {
			return err
		}
	}

	for _, conn := range st.Tracker.Connections() {
		st.Layout.EmitRaw(conn.String())
	}
	return nil
}

func (g *Generator) visitFuncDecl(st *State, n *cast.FuncDecl) {
	label := n.Name + "(" + strings.Join(n.ParamNames(), ", ") + ")"
	st.allocateNode(label, Box)
}

func (g *Generator) visitCompound(st *State, n *cast.Compound) error {
	for _, item := range n.Items {
		prev := st.Layout.CurrentNodeName()
		text, ok, err := g.visit(st, item)
		if err != nil {
			return err
		}
		if ok && st.inFunction() {
			id := st.allocateNode(text, Box)
			st.Tracker.Connect(prev, id)
		}
	}
	return nil
}

func (g *Generator) visitCall(st *State, n *cast.Call) (string, bool, error) {
	name := n.Name()
	if st.inFunction() {
		switch {
		case g.outputs[name]:
			return "", false, g.renderOutput(st, n)
		case g.inputs[name]:
			return "", false, g.renderInput(st, n)
		}
	}

	args, err := g.inlineAll(st, n.Args)
	if err != nil {
		return "", false, err
	}
	return name + "(" + strings.Join(args, ", ") + ")", true, nil
}

// renderOutput emits an output node. A single argument is decoded as a
// literal; otherwise the arguments after the format string are listed.
func (g *Generator) renderOutput(st *State, n *cast.Call) error {
	var label string
	switch len(n.Args) {
	case 0:
	case 1:
		decoded, err := cast.DecodeLiteral(literalText(n.Args[0]))
		if err != nil {
			pos := n.Position()
			return fmt.Errorf("rendering %s at %d:%d: %w", n.Name(), pos.Line, pos.Column, err)
		}
		label = strings.TrimSpace(decoded)
	default:
		args, err := g.inlineAll(st, n.Args[1:])
		if err != nil {
			return err
		}
		label = strings.Join(args, ", ")
	}

	g.ioNode(st, outputPrefix+label)
	return nil
}

// renderInput emits an input node listing the destinations after the
// format string.
func (g *Generator) renderInput(st *State, n *cast.Call) error {
	var names []string
	if len(n.Args) > 1 {
		for _, arg := range n.Args[1:] {
			name, err := g.inputName(st, arg)
			if err != nil {
				return err
			}
			names = append(names, name)
		}
	}

	g.ioNode(st, inputPrefix+strings.Join(names, ", "))
	return nil
}

func (g *Generator) ioNode(st *State, label string) {
	prev := st.Layout.CurrentNodeName()
	id := st.allocateNode(label, RightParallelogram)
	st.Tracker.Connect(prev, id)
}

// inputName returns the variable an input argument stores into: the
// identifier itself, or the identifier under an address-of operator.
func (g *Generator) inputName(st *State, arg cast.Node) (string, error) {
	switch a := arg.(type) {
	case *cast.Ident:
		return a.Name, nil
	case *cast.UnaryOp:
		if id, ok := a.Operand.(*cast.Ident); ok && a.Op == "&" {
			return id.Name, nil
		}
	}
	return g.inline(st, arg)
}

func (g *Generator) visitUnary(st *State, n *cast.UnaryOp) (string, bool, error) {
	operand, err := g.inline(st, n.Operand)
	if err != nil {
		return "", false, err
	}
	if n.Postfix {
		return operand + n.Op, true, nil
	}
	return n.Op + operand, true, nil
}

func (g *Generator) visitBinary(st *State, n *cast.BinaryOp) (string, bool, error) {
	left, err := g.inline(st, n.Left)
	if err != nil {
		return "", false, err
	}
	right, err := g.inline(st, n.Right)
	if err != nil {
		return "", false, err
	}
	return left + " " + n.Op + " " + right, true, nil
}

// inline renders an expression as text, falling back to its source when
// the visit produces no inline value.
func (g *Generator) inline(st *State, n cast.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	text, ok, err := g.visit(st, n)
	if err != nil {
		return "", err
	}
	if !ok {
		return n.Source(), nil
	}
	return text, nil
}

func (g *Generator) inlineAll(st *State, nodes []cast.Node) ([]string, error) {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		text, err := g.inline(st, n)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

func literalText(n cast.Node) string {
	if c, ok := n.(*cast.Constant); ok {
		return c.Value
	}
	return n.Source()
}

func (g *Generator) debug(msg string, args ...interface{}) {
	if g.opts.Logger != nil {
		g.opts.Logger.Debug(msg, args...)
	}
}
