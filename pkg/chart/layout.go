package chart

import (
	"fmt"
	"strings"
)

const (
	// Header is the first line of every rendered chart.
	Header = "flowchart TB"

	indentUnit = "    "
	baseLevel  = 1
)

// Layout names subgraphs and nodes and accumulates indented output lines.
// Node names have the form n<subgraph>_<node>; the node counter only grows
// within a subgraph.
type Layout struct {
	lines      []string
	level      int
	subgraphID int
	nodeID     int
}

// NewLayout returns a Layout in its initial state.
func NewLayout() *Layout {
	l := &Layout{}
	l.Reset()
	return l
}

// Reset restores the initial state: only the header line, base indentation
// and zeroed counters.
func (l *Layout) Reset() {
	l.lines = []string{Header}
	l.level = baseLevel
	l.subgraphID = 0
	l.nodeID = 0
}

// Level returns the current indentation level.
func (l *Layout) Level() int { return l.level }

// CurrentNodeName returns the name of the most recently allocated node in
// the current subgraph without allocating a new one.
func (l *Layout) CurrentNodeName() string {
	return fmt.Sprintf("n%d_%d", l.subgraphID, l.nodeID)
}

// AllocateNode allocates the next node name, emits its declaration line and
// returns the name.
func (l *Layout) AllocateNode(label string, shape Shape) string {
	l.nodeID++
	id := l.CurrentNodeName()
	l.EmitRaw(id + shape.Wrap(label))
	return id
}

// AllocateSubgraph emits a subgraph header named after the current subgraph
// counter and returns that name. The caller advances the counter with
// EnterSubgraph before emitting the subgraph's content.
func (l *Layout) AllocateSubgraph(label string, shape Shape) string {
	id := fmt.Sprintf("SG%d", l.subgraphID)
	l.EmitRaw("subgraph " + id + shape.Wrap(label))
	return id
}

// EnterSubgraph advances the subgraph counter and restarts node numbering.
func (l *Layout) EnterSubgraph() {
	l.subgraphID++
	l.nodeID = 0
}

// EmitRaw appends line at the current indentation. Empty lines are ignored.
func (l *Layout) EmitRaw(line string) {
	if line == "" {
		return
	}
	l.lines = append(l.lines, strings.Repeat(indentUnit, l.level)+line)
}

// Indent increases the indentation level and returns a function restoring
// the previous level. Use it as `defer l.Indent()()`.
func (l *Layout) Indent() func() {
	prev := l.level
	l.level++
	return func() { l.level = prev }
}

// Lines returns a copy of the accumulated lines.
func (l *Layout) Lines() []string {
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Render joins lines into the final chart text.
func Render(lines []string) string {
	return strings.Join(lines, "\n")
}
