package chart

// Document is the structured form of a generated chart, used by renderers
// other than the line-oriented one.
type Document struct {
	Subgraphs []Subgraph `json:"subgraphs"`
}

// Subgraph groups the nodes and edges of one function.
type Subgraph struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Function string       `json:"function"`
	Nodes    []Node       `json:"nodes"`
	Edges    []Connection `json:"edges"`
}

// Node is one rendered flowchart node.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Shape Shape  `json:"shape"`
}

// Functions returns the function names of all subgraphs in order.
func (d Document) Functions() []string {
	names := make([]string, 0, len(d.Subgraphs))
	for _, sg := range d.Subgraphs {
		names = append(names, sg.Function)
	}
	return names
}
