// Package dot renders a chart document as a Graphviz graph. The DOT text can
// be rendered to SVG with [RenderSVG].
package dot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/l3aro/cflowchart/pkg/chart"
)

// ToDOT converts a chart document to Graphviz DOT. Each function becomes a
// cluster named after its subgraph; edges keep their recorded order.
func ToDOT(doc chart.Document) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, fontname=\"Helvetica\"];\n")

	for _, sg := range doc.Subgraphs {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "  subgraph %q {\n", "cluster_"+sg.ID)
		fmt.Fprintf(&buf, "    label=%q;\n", sg.Function)
		buf.WriteString("    style=rounded;\n")

		for _, n := range sg.Nodes {
			fmt.Fprintf(&buf, "    %q [%s];\n", n.ID, strings.Join(nodeAttrs(n), ", "))
		}
		for _, e := range sg.Edges {
			fmt.Fprintf(&buf, "    %q -> %q;\n", e.From, e.To)
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n chart.Node) []string {
	attrs := []string{fmt.Sprintf("label=%q", n.Label)}

	switch n.Shape {
	case chart.RoundedBox, chart.Capsule:
		attrs = append(attrs, "shape=box", "style=rounded")
	case chart.Subroutine:
		attrs = append(attrs, "shape=box", "peripheries=2")
	case chart.Circle:
		attrs = append(attrs, "shape=circle")
	case chart.Rhombus:
		attrs = append(attrs, "shape=diamond")
	case chart.Hexagon:
		attrs = append(attrs, "shape=hexagon")
	case chart.LeftParallelogram, chart.RightParallelogram:
		attrs = append(attrs, "shape=parallelogram")
	default:
		attrs = append(attrs, "shape=box")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
